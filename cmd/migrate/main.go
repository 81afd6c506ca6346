package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-extractor/internal/config"
	infraBQ "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/logger"
)

func main() {
	cfg := config.Load(logger.New())

	var (
		projectID = flag.String("project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT env)")
		datasetID = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID (or set BIGQUERY_DATASET env)")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		dryRun    = flag.Bool("dry-run", false, "list the embedded migrations without applying them")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ds := infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID}

	migrations, err := infraBQ.EmbeddedMigrations(ds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	if *dryRun {
		for _, m := range migrations {
			log.Info().Int("version", m.Version).Str("name", m.Name).Str("checksum", m.Checksum[:12]).Msg("Migration")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	applied, err := infraBQ.ApplyMigrationsWithClient(ctx, client, ds, migrations, *appliedBy, log)
	if err != nil {
		log.Error().Err(err).Int("applied", applied).Msg("Migration failed")
		client.Close()
		os.Exit(1)
	}

	if applied == 0 {
		log.Info().Msg("No pending migrations")
		return
	}
	log.Info().Int("applied", applied).Msg("All migrations applied successfully")
}
