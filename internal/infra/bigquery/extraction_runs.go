package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ExtractionRunRow records one processed document, whatever the outcome.
type ExtractionRunRow struct {
	RunID      string              `bigquery:"run_id"`      // REQUIRED
	DocumentID string              `bigquery:"document_id"` // REQUIRED
	Kind       string              `bigquery:"kind"`        // REQUIRED, receipt or statement
	SourceURI  bigquery.NullString `bigquery:"source_uri"`  // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ModelName       string              `bigquery:"model_name"`       // REQUIRED
	Status          string              `bigquery:"status"`           // REQUIRED, SUCCESS or FAILED
	Confidence      bigquery.NullString `bigquery:"confidence"`       // NULLABLE, receipts only
	ConfidenceLabel bigquery.NullString `bigquery:"confidence_label"` // NULLABLE, receipts only
	RecordCount     int64               `bigquery:"record_count"`     // REQUIRED
	ErrorMessage    bigquery.NullString `bigquery:"error_message"`    // NULLABLE
}
