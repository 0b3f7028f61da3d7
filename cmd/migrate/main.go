package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/finassist/internal/config"
	infraBQ "github.com/dvloznov/finassist/internal/infra/bigquery"
	"github.com/dvloznov/finassist/internal/logger"
)

var (
	configFile    = flag.String("config", "", "Path to a finassist config file")
	projectID     = flag.String("project", "", "GCP project ID (overrides config)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (overrides config)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	dryRun        = flag.Bool("dry-run", false, "List the migrations that would be read without touching BigQuery")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewFromConfig(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *projectID != "" {
		cfg.BigQuery.ProjectID = *projectID
	}
	if *datasetID != "" {
		cfg.BigQuery.DatasetID = *datasetID
	}
	if cfg.BigQuery.ProjectID == "" || cfg.BigQuery.DatasetID == "" {
		log.Fatal().Msg("project and dataset are required: pass -project/-dataset or set BQ_PROJECT_ID/BQ_DATASET_ID")
	}

	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	migrations, err := infraBQ.ReadMigrations(os.DirFS(dir), cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Str("dir", dir).Int("count", len(migrations)).Msg("Found migration files")

	if *dryRun {
		for _, m := range migrations {
			log.Info().Int("version", m.Version).Str("name", m.Name).Str("checksum", m.Checksum[:12]).Msg("migration")
		}
		return
	}

	ctx := context.Background()

	client, err := infraBQ.NewClient(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, cfg.BigQuery.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().
		Str("project_id", cfg.BigQuery.ProjectID).
		Str("dataset_id", cfg.BigQuery.DatasetID).
		Msg("Connected to BigQuery")

	applied, err := client.Migrate(ctx, migrations, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", applied).Msg("Successfully applied migrations")
	}
}

// resolveMigrationsDir finds dir relative to the working directory or, when
// run from cmd/migrate, relative to the repository root.
func resolveMigrationsDir(dir string) (string, error) {
	for _, candidate := range []string{dir, filepath.Join("..", "..", dir)} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}
