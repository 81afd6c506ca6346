package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/config"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	"github.com/dvloznov/finance-extractor/internal/gemini"
	infraBQ "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/finance-extractor/internal/logger"
	"github.com/dvloznov/finance-extractor/internal/pipeline"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

const pollInterval = 200 * time.Millisecond

// jobSpec is one line of the job input.
type jobSpec struct {
	DocumentID string `json:"document_id"`
	GCSURI     string `json:"gcs_uri"`
	Kind       string `json:"kind"`
	MediaType  string `json:"media_type"`
	Text       string `json:"text"`
}

func main() {
	cfg := config.Load(logger.New())

	jobsFile := flag.String("jobs", "-", `file of JSON job specs, one per line ("-" for stdin)`)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := gemini.New(ctx, cfg.GeminiClient, gemini.Options{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		ConnectTimeout: cfg.GeminiConnectTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	gcsService, err := storage.NewGCSService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Cloud Storage client")
	}
	defer gcsService.Close()

	var store pipeline.ResultStore
	if cfg.PersistenceEnabled() {
		repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Dataset{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		store = repo
	}

	ingestor := pipeline.NewIngestor(pipeline.Deps{
		Fetcher:   gcsService,
		Extractor: extraction.NewOrchestrator(client, cfg.MaxUploadSizeBytes, log),
		Store:     store,
		ModelName: cfg.GeminiModel,
		Log:       log,
	})

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore, log)

	if err := jobQueue.Start(ctx, ingestor.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}
	log.Info().Msg("Worker service started")

	in := os.Stdin
	if *jobsFile != "-" {
		f, err := os.Open(*jobsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *jobsFile).Msg("Failed to open jobs file")
		}
		defer f.Close()
		in = f
	}

	ids := publishJobs(ctx, in, jobQueue, log)
	waitForJobs(ctx, jobStore, ids, log)

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	report(jobStore, ids, log)
	log.Info().Msg("Worker service exited")
}

// publishJobs enqueues every valid spec read from r and returns the job IDs.
func publishJobs(ctx context.Context, r io.Reader, publisher jobs.Publisher, log zerolog.Logger) []string {
	var ids []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var spec jobSpec
		if err := json.Unmarshal(scanner.Bytes(), &spec); err != nil {
			log.Error().Err(err).Int("line", line).Msg("Skipping malformed job spec")
			continue
		}
		kind := jobs.DocumentKind(spec.Kind)
		if !kind.Valid() {
			log.Error().Int("line", line).Str("kind", spec.Kind).Msg("Skipping job spec with unknown kind")
			continue
		}

		job := &jobs.ExtractDocumentJob{
			DocumentID: spec.DocumentID,
			Kind:       kind,
			GCSURI:     spec.GCSURI,
			MediaType:  spec.MediaType,
			Text:       spec.Text,
		}
		if err := publisher.PublishExtractDocument(ctx, job); err != nil {
			log.Error().Err(err).Int("line", line).Msg("Failed to publish job")
			continue
		}
		ids = append(ids, job.JobID)
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Failed to read job specs")
	}

	log.Info().Int("jobs", len(ids)).Msg("Jobs published")
	return ids
}

// waitForJobs blocks until every job is completed or failed, or ctx is done.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string, log zerolog.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		pending := 0
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil || (job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed) {
				pending++
			}
		}
		if pending == 0 {
			return
		}

		select {
		case <-ctx.Done():
			log.Warn().Int("pending", pending).Msg("Interrupted before all jobs finished")
			return
		case <-ticker.C:
		}
	}
}

// report writes each job's final state to stdout as one JSON line.
func report(store jobs.JobStore, ids []string, log zerolog.Logger) {
	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, id := range ids {
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			log.Error().Err(err).Str("job_id", id).Msg("Job state lost")
			continue
		}
		if job.Status != jobs.JobStatusCompleted {
			failed++
		}
		if err := enc.Encode(job); err != nil {
			log.Error().Err(err).Str("job_id", id).Msg("Failed to write job result")
		}
	}
	log.Info().Int("jobs", len(ids)).Int("failed", failed).Msg("Worker summary")
}
