package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/volleyplan/internal/config"
	"github.com/claude/volleyplan/internal/importer"
	"github.com/claude/volleyplan/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to config file")
	catalogPath := flag.String("file", "", "path to drill catalog JSON, optionally gzip-compressed (required)")
	dryRun := flag.Bool("dry-run", false, "normalize and report counts without touching the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *catalogPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: volleyplan-import -config config.yaml -file drills.json[.gz] [-dry-run]\n")
		flag.PrintDefaults()
		return 1
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
		stats, err := importer.New(nil, nil, log, true).ImportFile(ctx, *catalogPath)
		if err != nil {
			log.Error("import failed", "error", err)
			return 1
		}
		printStats(log, stats)
		return 0
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		return 1
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		return 1
	}
	log.Info("migrations applied")

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		return 1
	}
	defer db.Close()
	log.Info("database connected")

	// Run import
	imp := importer.New(db, db, log, false)
	stats, err := imp.ImportFile(ctx, *catalogPath)
	if err != nil {
		log.Error("import failed", "error", err)
		if stats != nil {
			printStats(log, stats)
		}
		return 1
	}

	printStats(log, stats)
	log.Info("import complete")
	return 0
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"received", stats.Received,
		"upserted", stats.Upserted,
		"skipped", stats.Skipped,
	)
	if len(stats.Invalid) > 0 {
		log.Info("skipped records (missing id or duplicate)", "records", stats.Invalid)
	}
}
