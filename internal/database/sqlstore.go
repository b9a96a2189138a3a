package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/soildata/pedon/internal/log"
	"github.com/soildata/pedon/pkg/pedon"
)

// SQLLoader loads collections over database/sql. It supports the "sqlite"
// (modernc) and "postgres" (lib/pq) drivers, for callers that do not need
// the GORM client.
type SQLLoader struct {
	db     *sql.DB
	tables Tables
}

// NewSQLLoader opens a database/sql connection with the given driver.
func NewSQLLoader(driver, dsn string, tables Tables) (*SQLLoader, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return &SQLLoader{db: db, tables: tables.withDefaults()}, nil
}

// LoadCollection reads the horizon and site relations and builds a
// Collection. Diagnostic and restriction tables are joined when queryable.
func (l *SQLLoader) LoadCollection(ctx context.Context) (*pedon.Collection, error) {
	hRows, err := l.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s, %s", l.tables.Horizons, ColProfileID, ColTop,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query horizons: %w", err)
	}
	horizons, err := scanHorizonRows(hRows)
	hRows.Close()
	if err != nil {
		return nil, err
	}

	sRows, err := l.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s", l.tables.Sites, ColProfileID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	sites, err := scanSiteRows(sRows)
	sRows.Close()
	if err != nil {
		return nil, err
	}

	collection, err := pedon.Build(horizons, sites)
	if err != nil {
		return nil, fmt.Errorf("failed to build collection: %w", err)
	}
	log.Infof("loaded %d profiles with %d horizons", collection.Len(), collection.HorizonCount())

	for _, aux := range []struct {
		table  string
		attach func([]pedon.Feature) error
	}{
		{l.tables.Diagnostics, collection.AttachDiagnostics},
		{l.tables.Restrictions, collection.AttachRestrictions},
	} {
		rows, err := l.db.QueryContext(ctx, fmt.Sprintf(
			"SELECT %s, %s, %s, %s FROM %s ORDER BY %s, %s",
			ColProfileID, ColKind, ColTop, ColBottom, aux.table, ColProfileID, ColTop,
		))
		if err != nil {
			// Auxiliary relations are optional.
			log.Debugf("skipping %s: %v", aux.table, err)
			continue
		}
		features, err := scanFeatureRows(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		if err := aux.attach(features); err != nil {
			return nil, err
		}
	}
	return collection, nil
}

// Close closes the underlying connection.
func (l *SQLLoader) Close() error {
	return l.db.Close()
}
