package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient streams a batch of TransactionRow into the transactions table.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryTransactionsByDateRangeWithClient returns the transactions dated within
// [start, end], oldest first.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			document_id,
			source_uri,
			transaction_date,
			amount,
			direction,
			raw_description,
			category_name,
			statement_line_no,
			created_ts
		FROM ` + ds.table(transactionsTable) + `
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
