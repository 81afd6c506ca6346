// Package handlers implements the HTTP endpoints of the extraction API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/api/middleware"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

// multipartOverhead is allowed on top of the document size limit for form fields and boundaries.
const multipartOverhead = 1 << 20

// ReceiptExtractor extracts a single receipt record.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, doc extraction.Document) (extraction.ExtractionRecord, error)
}

// StatementExtractor extracts statement transactions.
type StatementExtractor interface {
	ExtractTransactions(ctx context.Context, doc extraction.Document) ([]extraction.TransactionRecord, error)
}

// Uploader stores original documents.
type Uploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

// ReceiptStore persists scanned receipts.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, r extraction.ExtractionRecord, src infra.Source) (string, error)
}

// TransactionStore persists and queries statement transactions.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, records []extraction.TransactionRecord, src infra.Source) ([]string, error)
	TransactionsBetween(ctx context.Context, start, end civil.Date) ([]extraction.TransactionRecord, error)
}

// readDocument reads the multipart "file" part and the optional "text" field.
// Failures are written to w and reported as ok == false.
func readDocument(w http.ResponseWriter, r *http.Request, maxSize int64) (extraction.Document, bool) {
	if maxSize <= 0 {
		maxSize = extraction.MaxDocumentSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds %d bytes", maxSize))
			return extraction.Document{}, false
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return extraction.Document{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return extraction.Document{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return extraction.Document{}, false
	}

	return extraction.Document{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Data:      data,
		Text:      r.FormValue("text"),
	}, true
}

// writeExtractionError maps a ValidationError to 400 and anything else to 500.
func writeExtractionError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var verr *extraction.ValidationError
	if errors.As(err, &verr) {
		middleware.WriteError(w, http.StatusBadRequest, verr.Error())
		return
	}
	log.Error().Err(err).Msg("Extraction failed")
	middleware.WriteError(w, http.StatusInternalServerError, "Extraction failed")
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
		GCSURI     string `json:"gcs_uri"`
		Kind       string `json:"kind"`
		MediaType  string `json:"media_type"`
		Text       string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind := jobs.DocumentKind(req.Kind)
	if !kind.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "kind must be receipt or statement")
		return
	}
	if _, _, err := storage.ParseURI(req.GCSURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.ExtractDocumentJob{
		DocumentID: req.DocumentID,
		Kind:       kind,
		GCSURI:     req.GCSURI,
		MediaType:  req.MediaType,
		Text:       req.Text,
	}

	if err := h.publisher.PublishExtractDocument(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("document_id", job.DocumentID).Str("kind", req.Kind).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": job.DocumentID,
		"status":      string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Kind:       jobs.DocumentKind(query.Get("kind")),
		Status:     jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
