package extraction

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Confidence is a coarse indicator of how a record was produced.
type Confidence string

const (
	// ConfidenceHigh marks a record decoded from the model's JSON.
	ConfidenceHigh Confidence = "HIGH"
	// ConfidenceLow marks a record recovered by pattern matching.
	ConfidenceLow Confidence = "LOW"
	// ConfidenceFailed marks an all-default record.
	ConfidenceFailed Confidence = "FAILED"
)

// ProcessingStatus is the overall outcome of an extraction.
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "SUCCESS"
	StatusFailed  ProcessingStatus = "FAILED"
)

// TransactionType is the direction of a statement transaction.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// ExtractionRecord holds the fields extracted from a single receipt or document.
type ExtractionRecord struct {
	MerchantName     string           `json:"merchantName"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	TransactionDate  string           `json:"transactionDate"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	InvoiceNumber    string           `json:"invoiceNumber"`
	TaxAmount        decimal.Decimal  `json:"taxAmount"`
	TotalAmount      decimal.Decimal  `json:"totalAmount"`
	PaymentMethod    string           `json:"paymentMethod"`
	Items            []string         `json:"items"`
	Confidence       Confidence       `json:"confidence"`
	ConfidenceLabel  string           `json:"confidenceLabel"`
	ExtractedText    string           `json:"extractedText"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
}

// TransactionRecord is one dated row recovered from a bank statement.
type TransactionRecord struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category,omitempty"`
}

// EmptyRecord returns an all-default record marked as failed.
func EmptyRecord(label string) ExtractionRecord {
	r := ExtractionRecord{
		Confidence:      ConfidenceFailed,
		ConfidenceLabel: label,
	}
	r.Backfill()
	return r
}

// Backfill assigns the documented default to every field that is still unset
// and clamps values that fall outside their domain. It is safe to call more than once.
func (r *ExtractionRecord) Backfill() {
	if r.Items == nil {
		r.Items = []string{}
	}
	r.Amount = nonNegative(r.Amount)
	r.TaxAmount = nonNegative(r.TaxAmount)
	r.TotalAmount = nonNegative(r.TotalAmount)

	if !IsCategory(r.Category) {
		r.Category = CategoryOther
	}

	if r.Confidence == "" {
		r.Confidence = ConfidenceFailed
	}
	if r.ConfidenceLabel == "" {
		switch r.Confidence {
		case ConfidenceHigh:
			r.ConfidenceLabel = LabelModelParsed
		case ConfidenceLow:
			r.ConfidenceLabel = LabelPatternOnly
		default:
			r.ConfidenceLabel = LabelProcessingFail
		}
	}

	if r.ProcessingStatus == "" {
		if r.Confidence == ConfidenceFailed {
			r.ProcessingStatus = StatusFailed
		} else {
			r.ProcessingStatus = StatusSuccess
		}
	}
}

// IsEmpty reports whether no document-specific field was recovered.
func (r ExtractionRecord) IsEmpty() bool {
	return !r.hasRecoveredFields()
}

// hasRecoveredFields reports whether any document-specific field was found.
func (r *ExtractionRecord) hasRecoveredFields() bool {
	return r.MerchantName != "" ||
		r.TransactionDate != "" ||
		r.InvoiceNumber != "" ||
		r.Currency != "" ||
		!r.Amount.IsZero() ||
		!r.TaxAmount.IsZero()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
