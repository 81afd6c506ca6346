package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// Repository persists extraction results.
type Repository interface {
	// SaveReceipt stores one receipt record and returns its id.
	SaveReceipt(ctx context.Context, r extraction.ExtractionRecord, src Source) (string, error)

	// SaveTransactions stores statement records in order and returns their ids.
	SaveTransactions(ctx context.Context, records []extraction.TransactionRecord, src Source) ([]string, error)

	// ListReceipts returns the most recent receipts, newest first.
	ListReceipts(ctx context.Context, limit int) ([]extraction.ExtractionRecord, error)

	// TransactionsBetween returns the transactions dated within [start, end].
	TransactionsBetween(ctx context.Context, start, end civil.Date) ([]extraction.TransactionRecord, error)

	// RecordRun stores the outcome of one processed document.
	RecordRun(ctx context.Context, row *ExtractionRunRow) error
}

// BigQueryRepository is the BigQuery implementation of Repository. It holds
// a shared client for the lifetime of the process.
type BigQueryRepository struct {
	client *bigquery.Client
	ds     Dataset
	now    func() time.Time
}

// NewBigQueryRepository creates a repository with its own BigQuery client.
func NewBigQueryRepository(ctx context.Context, ds Dataset) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, ds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client: client,
		ds:     ds,
		now:    time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveReceipt inserts one receipt row.
func (r *BigQueryRepository) SaveReceipt(ctx context.Context, rec extraction.ExtractionRecord, src Source) (string, error) {
	id := uuid.NewString()
	row := NewReceiptRow(id, rec, src, r.now())
	if err := InsertReceiptsWithClient(ctx, r.client, r.ds, []*ReceiptRow{row}); err != nil {
		return "", err
	}
	return id, nil
}

// SaveTransactions inserts statement rows numbered from 1 in document order.
func (r *BigQueryRepository) SaveTransactions(ctx context.Context, records []extraction.TransactionRecord, src Source) ([]string, error) {
	now := r.now()
	ids := make([]string, len(records))
	rows := make([]*TransactionRow, len(records))
	for i, rec := range records {
		ids[i] = uuid.NewString()
		rows[i] = NewTransactionRow(ids[i], rec, src, i+1, now)
	}
	if err := InsertTransactionsWithClient(ctx, r.client, r.ds, rows); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListReceipts queries the receipts table.
func (r *BigQueryRepository) ListReceipts(ctx context.Context, limit int) ([]extraction.ExtractionRecord, error) {
	rows, err := ListReceiptsWithClient(ctx, r.client, r.ds, limit)
	if err != nil {
		return nil, err
	}
	out := make([]extraction.ExtractionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

// TransactionsBetween queries the transactions table.
func (r *BigQueryRepository) TransactionsBetween(ctx context.Context, start, end civil.Date) ([]extraction.TransactionRecord, error) {
	rows, err := QueryTransactionsByDateRangeWithClient(ctx, r.client, r.ds, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]extraction.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

// RecordRun inserts one extraction run row.
func (r *BigQueryRepository) RecordRun(ctx context.Context, row *ExtractionRunRow) error {
	return InsertExtractionRunWithClient(ctx, r.client, r.ds, row)
}
