// pedon is a command-line front end for the soil profile collection library:
// it loads flat horizon/site relations from CSV files, SQLite, or Postgres,
// validates depth logic, and runs the configured depth operation.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/soildata/pedon/internal/database"
	"github.com/soildata/pedon/internal/log"
	"github.com/soildata/pedon/pkg/config"
	"github.com/soildata/pedon/pkg/dissim"
	"github.com/soildata/pedon/pkg/export"
	"github.com/soildata/pedon/pkg/pedon"
	"github.com/soildata/pedon/pkg/slab"
	"github.com/soildata/pedon/pkg/slice"
)

func main() {
	configPath := flag.String("config", "pedon.yaml", "analysis configuration (YAML file or SQLite database)")
	horizonsCSV := flag.String("horizons", "", "horizon relation CSV (profile_id,top,bottom,...)")
	sitesCSV := flag.String("sites", "", "site relation CSV (profile_id,...)")
	driver := flag.String("driver", "", "load records from a database instead of CSV: sqlite or postgres")
	dsn := flag.String("dsn", "", "database DSN or path when -driver is set")
	op := flag.String("op", "validate", "operation: validate, slice, glom, slab, or dissim")
	profileID := flag.String("profile", "", "profile key for -op glom")
	outPath := flag.String("out", "", "output file (default stdout)")
	formatName := flag.String("format", "", "output format: json or msgpack (default from configuration)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*configPath, *horizonsCSV, *sitesCSV, *driver, *dsn, *op, *profileID, *outPath, *formatName); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(configPath, horizonsCSV, sitesCSV, driver, dsn, op, profileID, outPath, formatName string) error {
	provider, err := openProvider(configPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	analysis, err := provider.LoadAnalysis()
	if err != nil {
		return fmt.Errorf("failed to load analysis configuration: %w", err)
	}

	collection, err := loadCollection(horizonsCSV, sitesCSV, driver, dsn)
	if err != nil {
		return err
	}

	if formatName == "" {
		formatName = analysis.Export
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	report := collection.Check()
	if op == "validate" {
		return export.Write(out, format, validationPayload(report))
	}
	if !report.Valid() {
		return fmt.Errorf("collection failed depth validation; offending profiles: %v", report.BadProfiles)
	}

	switch op {
	case "slice":
		maxDepth := int(math.Ceil(collection.MaxDepth()))
		sliced, err := slice.Slice(collection, slice.Grid(0, maxDepth), analysis.Variables)
		if err != nil {
			return err
		}
		return export.Write(out, format, collectionPayload(sliced))
	case "glom":
		if analysis.Window == nil {
			return fmt.Errorf("glom requires a window in the analysis configuration")
		}
		p, ok := collection.ProfileByID(profileID)
		if !ok {
			return fmt.Errorf("unknown profile %q", profileID)
		}
		clipped, err := slice.Glom(p, slice.DepthWindow{Top: analysis.Window.Top, Bottom: analysis.Window.Bottom})
		if err != nil {
			return err
		}
		if len(clipped.Horizons) == 0 {
			log.Warnf("window (%g,%g) selects no horizons of profile %s",
				analysis.Window.Top, analysis.Window.Bottom, profileID)
		}
		return export.Write(out, format, profilePayload(clipped))
	case "slab":
		summaries, err := slab.Aggregate(collection, slabConfig(analysis))
		if err != nil {
			return err
		}
		return export.Write(out, format, summaries)
	case "dissim":
		if analysis.Dissimilarity == nil {
			return fmt.Errorf("dissim requires dissimilarity parameters in the analysis configuration")
		}
		m, err := dissim.Matrix(collection, dissim.Config{
			Vars:     analysis.Variables,
			K:        analysis.Dissimilarity.K,
			MaxDepth: analysis.Dissimilarity.MaxDepth,
			Workers:  analysis.Workers,
		})
		if err != nil {
			return err
		}
		return export.Write(out, format, export.NewMatrixPayload(collection.IDs(), m))
	}
	return fmt.Errorf("unknown operation %q", op)
}

func openProvider(path string) (config.Provider, error) {
	switch filepath.Ext(path) {
	case ".db", ".sqlite", ".sqlite3":
		return config.NewSQLiteProvider(path)
	}
	return config.NewYAMLProvider(path), nil
}

func loadCollection(horizonsCSV, sitesCSV, driver, dsn string) (*pedon.Collection, error) {
	if driver == "" {
		if horizonsCSV == "" || sitesCSV == "" {
			return nil, fmt.Errorf("either -driver/-dsn or both -horizons and -sites are required")
		}
		return loadCSV(horizonsCSV, sitesCSV)
	}
	if driver == "postgres" {
		client := database.NewClient(dsn, database.Tables{}, log.GetSugaredLogger())
		if err := client.Connect(); err != nil {
			return nil, err
		}
		return client.LoadCollection(context.Background())
	}
	loader, err := database.NewSQLLoader(driver, dsn, database.Tables{})
	if err != nil {
		return nil, err
	}
	defer loader.Close()
	return loader.LoadCollection(context.Background())
}

func slabConfig(analysis *config.Analysis) slab.Config {
	cfg := slab.Config{
		Vars:    analysis.Variables,
		GroupBy: analysis.GroupBy,
	}
	if len(analysis.SlabBoundaries) > 0 {
		cfg.Spec = slab.Boundaries(analysis.SlabBoundaries)
	} else if analysis.SlabThickness > 0 {
		cfg.Spec = slab.Regular(analysis.SlabThickness)
	} else {
		cfg.Spec = slab.Regular(10)
	}
	if analysis.TieBreak == "deepest" {
		cfg.TieBreak = slab.TieBreakDeepest
	}
	if analysis.Estimator == "mean" {
		est := slab.WeightedMean()
		cfg.Estimator = &est
	}
	return cfg
}
