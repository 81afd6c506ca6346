package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const defaultListLimit = 50

// InsertReceiptsWithClient streams receipt rows into the receipts table.
func InsertReceiptsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*ReceiptRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(receiptsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertReceipts: inserting rows: %w", err)
	}
	return nil
}

// ListReceiptsWithClient returns the most recently created receipts, newest first.
func ListReceiptsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, limit int) ([]*ReceiptRow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := client.Query(`
		SELECT
			receipt_id,
			source_uri,
			original_filename,
			file_mime_type,
			merchant_name,
			transaction_date,
			raw_transaction_date,
			amount,
			tax_amount,
			total_amount,
			currency,
			category_name,
			description,
			invoice_number,
			payment_method,
			items,
			confidence,
			confidence_label,
			processing_status,
			extracted_text,
			created_ts
		FROM ` + ds.table(receiptsTable) + `
		ORDER BY created_ts DESC
		LIMIT @limit
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListReceipts: query read: %w", err)
	}

	var rows []*ReceiptRow
	for {
		var r ReceiptRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListReceipts: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
