package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soildata/pedon/internal/log"
	"github.com/soildata/pedon/pkg/pedon"
	"go.uber.org/zap"
)

// Client holds a GORM connection to a Postgres database carrying the
// horizon and site relations.
type Client struct {
	dsn    string
	tables Tables
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(dsn string, tables Tables, logger *zap.SugaredLogger) *Client {
	return &Client{
		dsn:    dsn,
		tables: tables.withDefaults(),
		logger: logger,
	}
}

// Connect connects to the Postgres database
func (c *Client) Connect() error {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)

	var err error
	c.DB, err = gorm.Open(postgres.Open(c.dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return fmt.Errorf("unable to create a Postgres connection: %w", err)
	}
	log.Info("Postgres connection successful")
	return nil
}

// LoadCollection reads the horizon and site relations and builds a
// Collection, then joins any diagnostic and restriction rows.
func (c *Client) LoadCollection(ctx context.Context) (*pedon.Collection, error) {
	db := c.DB.WithContext(ctx)

	hRows, err := db.Raw(fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s, %s", c.tables.Horizons, ColProfileID, ColTop,
	)).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query horizons: %w", err)
	}
	horizons, err := scanHorizonRows(hRows)
	hRows.Close()
	if err != nil {
		return nil, err
	}

	sRows, err := db.Raw(fmt.Sprintf(
		"SELECT * FROM %s ORDER BY %s", c.tables.Sites, ColProfileID,
	)).Rows()
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

	if err := c.loadFeatures(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// loadFeatures joins diagnostic and restriction rows when their tables
// exist. Absent tables are not an error.
func (c *Client) loadFeatures(ctx context.Context, collection *pedon.Collection) error {
	db := c.DB.WithContext(ctx)
	for _, aux := range []struct {
		table  string
		attach func([]pedon.Feature) error
	}{
		{c.tables.Diagnostics, collection.AttachDiagnostics},
		{c.tables.Restrictions, collection.AttachRestrictions},
	} {
		if !db.Migrator().HasTable(aux.table) {
			continue
		}
		rows, err := db.Raw(fmt.Sprintf(
			"SELECT %s, %s, %s, %s FROM %s ORDER BY %s, %s",
			ColProfileID, ColKind, ColTop, ColBottom, aux.table, ColProfileID, ColTop,
		)).Rows()
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", aux.table, err)
		}
		features, err := scanFeatureRows(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if err := aux.attach(features); err != nil {
			return err
		}
	}
	return nil
}
