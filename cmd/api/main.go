package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-extractor/internal/api/handlers"
	"github.com/dvloznov/finance-extractor/internal/api/middleware"
	"github.com/dvloznov/finance-extractor/internal/config"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	"github.com/dvloznov/finance-extractor/internal/gemini"
	infraBQ "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/finance-extractor/internal/logger"
	"github.com/dvloznov/finance-extractor/internal/pipeline"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

func main() {
	cfg := config.Load(logger.New())

	// Parse command-line flags
	var (
		port   = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		bucket = flag.String("bucket", cfg.GCSBucket, "GCS bucket for original documents (or set GCS_BUCKET env)")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	// Model client and extraction core
	client, err := gemini.New(ctx, cfg.GeminiClient, gemini.Options{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		ConnectTimeout: cfg.GeminiConnectTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	orchestrator := extraction.NewOrchestrator(client, cfg.MaxUploadSizeBytes, log)

	// Optional cloud storage
	var uploader handlers.Uploader
	var fetcher pipeline.Fetcher
	gcsService, err := storage.NewGCSService(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Cloud Storage unavailable - uploads and queued jobs are disabled")
	} else {
		defer gcsService.Close()
		fetcher = gcsService
		if *bucket != "" {
			uploader = gcsService
		} else {
			log.Warn().Msg("No GCS bucket configured - original documents will not be kept")
		}
	}

	// Optional persistence
	var receiptStore handlers.ReceiptStore
	var transactionStore handlers.TransactionStore
	var resultStore pipeline.ResultStore
	if cfg.PersistenceEnabled() {
		repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Dataset{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		receiptStore, transactionStore, resultStore = repo, repo, repo
	} else {
		log.Warn().Msg("BIGQUERY_PROJECT not set - results will not be persisted")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore, log)

	ingestor := pipeline.NewIngestor(pipeline.Deps{
		Fetcher:   fetcher,
		Extractor: orchestrator,
		Store:     resultStore,
		ModelName: cfg.GeminiModel,
		Log:       log,
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, ingestor.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Initialize handlers
	billScanHandler := handlers.NewBillScanHandler(orchestrator, uploader, *bucket, receiptStore, cfg.MaxUploadSizeBytes, cfg.GeminiModel, log)
	transactionsHandler := handlers.NewTransactionsHandler(orchestrator, transactionStore, cfg.MaxUploadSizeBytes, log)
	jobsHandler := handlers.NewJobsHandler(jobQueue, jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Bill scan endpoints
	mux.HandleFunc("/api/bill-scan/scan", methodOnly(http.MethodPost, billScanHandler.Scan))
	mux.HandleFunc("/api/bill-scan/info", methodOnly(http.MethodGet, billScanHandler.Info))
	mux.HandleFunc("/api/bill-scan/health", methodOnly(http.MethodGet, billScanHandler.Health))

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", methodOnly(http.MethodGet, transactionsHandler.List))
	mux.HandleFunc("/api/transactions/extract", methodOnly(http.MethodPost, transactionsHandler.Extract))
	mux.HandleFunc("/api/transactions/save", methodOnly(http.MethodPost, transactionsHandler.Save))
	mux.HandleFunc("/api/transactions/summary", methodOnly(http.MethodGet, transactionsHandler.Summary))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jobsHandler.ListJobs(w, r)
		case http.MethodPost:
			jobsHandler.CreateJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract job ID from path
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// methodOnly rejects requests whose method is not method.
func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
