package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadAnalysis loads the default analysis configuration from the database
func (s *SQLiteProvider) LoadAnalysis() (*Analysis, error) {
	query := `
		SELECT group_by, slab_thickness, estimator, tie_break, export,
		       workers, window_top, window_bottom, dissim_k, dissim_max_depth
		FROM analyses
		WHERE name = 'default'
	`

	analysis := &Analysis{}
	var groupBy, estimator, tieBreak, export sql.NullString
	var slabThickness, windowTop, windowBottom, dissimK sql.NullFloat64
	var workers, dissimMaxDepth sql.NullInt64

	err := s.db.QueryRow(query).Scan(
		&groupBy, &slabThickness, &estimator, &tieBreak, &export,
		&workers, &windowTop, &windowBottom, &dissimK, &dissimMaxDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	analysis.GroupBy = groupBy.String
	analysis.SlabThickness = slabThickness.Float64
	analysis.Estimator = estimator.String
	analysis.TieBreak = tieBreak.String
	analysis.Export = export.String
	analysis.Workers = int(workers.Int64)
	if windowTop.Valid && windowBottom.Valid {
		analysis.Window = &Window{Top: windowTop.Float64, Bottom: windowBottom.Float64}
	}
	if dissimMaxDepth.Valid {
		analysis.Dissimilarity = &Dissimilarity{
			K:        dissimK.Float64,
			MaxDepth: int(dissimMaxDepth.Int64),
		}
	}

	variables, err := s.getVariables()
	if err != nil {
		return nil, err
	}
	analysis.Variables = variables

	boundaries, err := s.getBoundaries()
	if err != nil {
		return nil, err
	}
	analysis.SlabBoundaries = boundaries

	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}
	return analysis, nil
}

// getVariables returns the analysis variables in position order
func (s *SQLiteProvider) getVariables() ([]string, error) {
	query := `
		SELECT name FROM analysis_variables
		WHERE analysis = 'default'
		ORDER BY position
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis variables: %w", err)
	}
	defer rows.Close()

	var variables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan variable row: %w", err)
		}
		variables = append(variables, name)
	}
	return variables, rows.Err()
}

// getBoundaries returns the irregular slab boundaries in position order,
// empty when the analysis uses a regular thickness
func (s *SQLiteProvider) getBoundaries() ([]float64, error) {
	query := `
		SELECT depth FROM analysis_boundaries
		WHERE analysis = 'default'
		ORDER BY position
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query slab boundaries: %w", err)
	}
	defer rows.Close()

	var boundaries []float64
	for rows.Next() {
		var depth float64
		if err := rows.Scan(&depth); err != nil {
			return nil, fmt.Errorf("failed to scan boundary row: %w", err)
		}
		boundaries = append(boundaries, depth)
	}
	return boundaries, rows.Err()
}

// IsReadOnly returns false; SQLite configuration can be updated in place
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
