package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// InsertExtractionRunWithClient writes a single run row. Uses DML INSERT so the
// row is immediately visible to queries.
func InsertExtractionRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ExtractionRunRow) error {
	q := client.Query(`
		INSERT INTO ` + ds.table(extractionRunsTable) + ` (
			run_id, document_id, kind, source_uri,
			started_ts, finished_ts, model_name, status,
			confidence, confidence_label, record_count, error_message
		)
		VALUES (
			@run_id, @document_id, @kind, @source_uri,
			@started_ts, @finished_ts, @model_name, @status,
			@confidence, @confidence_label, @record_count, @error_message
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "kind", Value: row.Kind},
		{Name: "source_uri", Value: row.SourceURI},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "finished_ts", Value: row.FinishedTS},
		{Name: "model_name", Value: row.ModelName},
		{Name: "status", Value: row.Status},
		{Name: "confidence", Value: row.Confidence},
		{Name: "confidence_label", Value: row.ConfidenceLabel},
		{Name: "record_count", Value: row.RecordCount},
		{Name: "error_message", Value: row.ErrorMessage},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertExtractionRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertExtractionRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertExtractionRun: job error: %w", err)
	}

	return nil
}
