package pipeline

import (
	"context"

	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
)

// Extractor runs receipt or statement extraction over one document.
// *extraction.Orchestrator is the production implementation.
type Extractor interface {
	ExtractReceipt(ctx context.Context, doc extraction.Document) (extraction.ExtractionRecord, error)
	ExtractTransactions(ctx context.Context, doc extraction.Document) ([]extraction.TransactionRecord, error)
}

// Fetcher downloads a document by its gs:// URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ResultStore persists extraction results and run outcomes.
// This is the subset of infra.Repository the pipeline writes to.
type ResultStore interface {
	SaveReceipt(ctx context.Context, r extraction.ExtractionRecord, src infra.Source) (string, error)
	SaveTransactions(ctx context.Context, records []extraction.TransactionRecord, src infra.Source) ([]string, error)
	RecordRun(ctx context.Context, row *infra.ExtractionRunRow) error
}
