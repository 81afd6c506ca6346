package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/finance-extractor/internal/config"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	"github.com/dvloznov/finance-extractor/internal/gemini"
	infraBQ "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/logger"
	"github.com/dvloznov/finance-extractor/internal/pipeline"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

func main() {
	cfg := config.Load(logger.New())

	// Parse CLI flags
	var (
		source    = flag.String("source", "", "local file path or GCS URI (gs://bucket/file.pdf)")
		kind      = flag.String("kind", string(jobs.KindReceipt), "document kind: receipt or statement")
		mediaType = flag.String("media-type", "", "declared media type; detected from content when empty")
		textFile  = flag.String("text-file", "", "file holding text already extracted from a PDF")
		save      = flag.Bool("save", false, "persist results to BigQuery (requires BIGQUERY_PROJECT)")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if *source == "" {
		log.Fatal().Msg("Error: --source is required")
	}
	docKind := jobs.DocumentKind(*kind)
	if !docKind.Valid() {
		log.Fatal().Str("kind", *kind).Msg("Error: --kind must be receipt or statement")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := gemini.New(ctx, cfg.GeminiClient, gemini.Options{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		ConnectTimeout: cfg.GeminiConnectTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	state := &pipeline.PipelineState{
		Kind:      docKind,
		MediaType: *mediaType,
	}
	if *textFile != "" {
		text, err := os.ReadFile(*textFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *textFile).Msg("Failed to read text file")
		}
		state.Text = string(text)
	}

	deps := pipeline.Deps{
		Extractor: extraction.NewOrchestrator(client, cfg.MaxUploadSizeBytes, log),
		ModelName: cfg.GeminiModel,
		Log:       log,
	}

	if strings.HasPrefix(*source, "gs://") {
		gcsService, err := storage.NewGCSService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Cloud Storage client")
		}
		defer gcsService.Close()
		deps.Fetcher = gcsService
		state.GCSURI = *source
	} else {
		data, err := os.ReadFile(*source)
		if err != nil {
			log.Fatal().Err(err).Str("file", *source).Msg("Failed to read document")
		}
		state.Data = data
		state.Filename = filepath.Base(*source)
	}

	if *save {
		if !cfg.PersistenceEnabled() {
			log.Fatal().Msg("Error: --save requires BIGQUERY_PROJECT")
		}
		repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Dataset{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		deps.Store = repo
	}

	log.Info().Str("source", *source).Str("kind", *kind).Msg("Starting extraction")

	if err := pipeline.NewIngestor(deps).Ingest(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	var result interface{} = state.Transactions
	if state.Receipt != nil {
		result = state.Receipt
	} else if state.Transactions == nil {
		result = []extraction.TransactionRecord{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Failed to write result")
	}
}
