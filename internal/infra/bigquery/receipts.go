package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// ReceiptRow is one extracted receipt, bill or invoice.
type ReceiptRow struct {
	ReceiptID string `bigquery:"receipt_id"` // REQUIRED

	SourceURI        bigquery.NullString `bigquery:"source_uri"`        // NULLABLE
	OriginalFilename bigquery.NullString `bigquery:"original_filename"` // NULLABLE
	FileMimeType     bigquery.NullString `bigquery:"file_mime_type"`    // NULLABLE

	MerchantName bigquery.NullString `bigquery:"merchant_name"` // NULLABLE

	TransactionDate    bigquery.NullDate   `bigquery:"transaction_date"`     // DATE, NULLABLE
	RawTransactionDate bigquery.NullString `bigquery:"raw_transaction_date"` // NULLABLE

	Amount      *big.Rat `bigquery:"amount"`       // NUMERIC, REQUIRED
	TaxAmount   *big.Rat `bigquery:"tax_amount"`   // NUMERIC, REQUIRED
	TotalAmount *big.Rat `bigquery:"total_amount"` // NUMERIC, REQUIRED

	Currency      bigquery.NullString `bigquery:"currency"`       // NULLABLE
	CategoryName  string              `bigquery:"category_name"`  // REQUIRED
	Description   bigquery.NullString `bigquery:"description"`    // NULLABLE
	InvoiceNumber bigquery.NullString `bigquery:"invoice_number"` // NULLABLE
	PaymentMethod bigquery.NullString `bigquery:"payment_method"` // NULLABLE

	Items []string `bigquery:"items"` // REPEATED STRING

	Confidence       string `bigquery:"confidence"`        // REQUIRED
	ConfidenceLabel  string `bigquery:"confidence_label"`  // REQUIRED
	ProcessingStatus string `bigquery:"processing_status"` // REQUIRED

	ExtractedText bigquery.NullString `bigquery:"extracted_text"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// Source describes where a persisted document came from.
type Source struct {
	DocumentID string
	URI        string
	Filename   string
	MediaType  string
}

// NewReceiptRow maps an extraction record to a row. The date column is set
// only when the extracted date parses in one of the supported formats; the
// raw text is always kept.
func NewReceiptRow(id string, r extraction.ExtractionRecord, src Source, now time.Time) *ReceiptRow {
	row := &ReceiptRow{
		ReceiptID:          id,
		SourceURI:          nullString(src.URI),
		OriginalFilename:   nullString(src.Filename),
		FileMimeType:       nullString(src.MediaType),
		MerchantName:       nullString(r.MerchantName),
		RawTransactionDate: nullString(r.TransactionDate),
		Amount:             toNumeric(r.Amount),
		TaxAmount:          toNumeric(r.TaxAmount),
		TotalAmount:        toNumeric(r.TotalAmount),
		Currency:           nullString(r.Currency),
		CategoryName:       r.Category,
		Description:        nullString(r.Description),
		InvoiceNumber:      nullString(r.InvoiceNumber),
		PaymentMethod:      nullString(r.PaymentMethod),
		Items:              r.Items,
		Confidence:         string(r.Confidence),
		ConfidenceLabel:    r.ConfidenceLabel,
		ProcessingStatus:   string(r.ProcessingStatus),
		ExtractedText:      nullString(r.ExtractedText),
		CreatedTS:          now.UTC(),
	}
	if row.Items == nil {
		row.Items = []string{}
	}
	if d, ok := extraction.ParseDate(r.TransactionDate); ok {
		row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
	}
	return row
}

// Record maps a row back to an extraction record.
func (row *ReceiptRow) Record() extraction.ExtractionRecord {
	r := extraction.ExtractionRecord{
		MerchantName:     row.MerchantName.StringVal,
		Amount:           fromNumeric(row.Amount),
		Currency:         row.Currency.StringVal,
		TransactionDate:  row.RawTransactionDate.StringVal,
		Category:         row.CategoryName,
		Description:      row.Description.StringVal,
		InvoiceNumber:    row.InvoiceNumber.StringVal,
		TaxAmount:        fromNumeric(row.TaxAmount),
		TotalAmount:      fromNumeric(row.TotalAmount),
		PaymentMethod:    row.PaymentMethod.StringVal,
		Items:            row.Items,
		Confidence:       extraction.Confidence(row.Confidence),
		ConfidenceLabel:  row.ConfidenceLabel,
		ExtractedText:    row.ExtractedText.StringVal,
		ProcessingStatus: extraction.ProcessingStatus(row.ProcessingStatus),
	}
	r.Backfill()
	return r
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
