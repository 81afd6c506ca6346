package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-extractor/internal/config"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/logger"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

// jobLine matches the input format of cmd/worker.
type jobLine struct {
	DocumentID string `json:"document_id"`
	GCSURI     string `json:"gcs_uri"`
	Kind       string `json:"kind"`
	MediaType  string `json:"media_type"`
}

func main() {
	cfg := config.Load(logger.New())

	var (
		bucketName string
		kind       string
		mediaType  string
	)

	flag.StringVar(&bucketName, "bucket", cfg.GCSBucket, "GCS bucket name (or set GCS_BUCKET env)")
	flag.StringVar(&kind, "kind", string(jobs.KindReceipt), "document kind: receipt or statement")
	flag.StringVar(&mediaType, "media-type", "", "declared media type; detected from content when empty")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if bucketName == "" || flag.NArg() == 0 {
		log.Fatal().Msg("Usage: upload -bucket BUCKET_NAME [-kind receipt|statement] FILE...")
	}
	docKind := jobs.DocumentKind(kind)
	if !docKind.Valid() {
		log.Fatal().Str("kind", kind).Msg("Error: -kind must be receipt or statement")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	gcsService, err := storage.NewGCSService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Cloud Storage client")
	}
	defer gcsService.Close()

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to read file")
			failed++
			continue
		}

		doc, err := extraction.ValidateDocument(extraction.Document{
			Filename:  filepath.Base(path),
			MediaType: mediaType,
			Data:      data,
		}, cfg.MaxUploadSizeBytes)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Skipping invalid document")
			failed++
			continue
		}

		documentID := uuid.NewString()
		object := storage.ObjectName(kind, documentID, doc.Filename)

		log.Info().
			Str("bucket", bucketName).
			Str("object", object).
			Str("file", path).
			Msg("Uploading file to GCS")

		uri, err := gcsService.Upload(ctx, bucketName, object, doc.MediaType, doc.Data)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Upload failed")
			failed++
			continue
		}

		if err := enc.Encode(jobLine{
			DocumentID: documentID,
			GCSURI:     uri,
			Kind:       kind,
			MediaType:  doc.MediaType,
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to write job line")
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("files", flag.NArg()).Msg("Some uploads failed")
		gcsService.Close()
		os.Exit(1)
	}
}
