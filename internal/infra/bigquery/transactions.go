package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// TransactionRow is one statement transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	DocumentID bigquery.NullString `bigquery:"document_id"` // NULLABLE
	SourceURI  bigquery.NullString `bigquery:"source_uri"`  // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC, absolute value
	Direction string   `bigquery:"direction"` // REQUIRED, INCOME or EXPENSE

	RawDescription string              `bigquery:"raw_description"` // REQUIRED
	CategoryName   bigquery.NullString `bigquery:"category_name"`   // NULLABLE

	StatementLineNo bigquery.NullInt64 `bigquery:"statement_line_no"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow maps a statement record at position lineNo to a row.
func NewTransactionRow(id string, r extraction.TransactionRecord, src Source, lineNo int, now time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   id,
		DocumentID:      nullString(src.DocumentID),
		SourceURI:       nullString(src.URI),
		TransactionDate: r.Date,
		Amount:          toNumeric(r.Amount.Abs()),
		Direction:       string(r.Type),
		RawDescription:  r.Description,
		CategoryName:    nullString(r.Category),
		StatementLineNo: bigquery.NullInt64{Int64: int64(lineNo), Valid: lineNo > 0},
		CreatedTS:       now.UTC(),
	}
}

// Record maps a row back to a statement record.
func (row *TransactionRow) Record() extraction.TransactionRecord {
	return extraction.TransactionRecord{
		Date:        row.TransactionDate,
		Description: row.RawDescription,
		Amount:      fromNumeric(row.Amount),
		Type:        extraction.TransactionType(row.Direction),
		Category:    row.CategoryName.StringVal,
	}
}
