package extraction

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFieldExtractor_Receipt(t *testing.T) {
	e := NewFieldExtractor(nil)

	r := e.Extract("Receipt Total $45.00 2024-03-01 Starbucks")

	if !r.Amount.Equal(decimal.RequireFromString("45.00")) {
		t.Errorf("Amount = %s, want 45.00", r.Amount)
	}
	if r.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", r.Currency)
	}
	if r.TransactionDate != "2024-03-01" {
		t.Errorf("TransactionDate = %q, want 2024-03-01", r.TransactionDate)
	}
	if !strings.Contains(r.MerchantName, "Starbucks") {
		t.Errorf("MerchantName = %q, want it to contain Starbucks", r.MerchantName)
	}
	if r.Category != CategoryFood {
		t.Errorf("Category = %q, want %q", r.Category, CategoryFood)
	}
	if r.Description != DefaultDescription {
		t.Errorf("Description = %q, want %q", r.Description, DefaultDescription)
	}
	if r.Confidence != ConfidenceLow || r.ProcessingStatus != StatusSuccess {
		t.Errorf("Confidence/Status = %s/%s, want LOW/SUCCESS", r.Confidence, r.ProcessingStatus)
	}
	if r.Items == nil {
		t.Error("Items is nil, want empty slice")
	}
}

func TestFieldExtractor_EmptyInput(t *testing.T) {
	e := NewFieldExtractor(nil)

	for _, input := range []string{"", "   \n\t  "} {
		r := e.Extract(input)
		if r.Confidence != ConfidenceFailed {
			t.Errorf("Extract(%q) Confidence = %s, want FAILED", input, r.Confidence)
		}
		if r.ConfidenceLabel != LabelNoContent {
			t.Errorf("Extract(%q) ConfidenceLabel = %q, want %q", input, r.ConfidenceLabel, LabelNoContent)
		}
		assertDefaultFields(t, r)
	}
}

func TestFieldExtractor_NothingRecoverable(t *testing.T) {
	r := NewFieldExtractor(nil).Extract("garbage, not json")

	if r.Confidence != ConfidenceFailed {
		t.Errorf("Confidence = %s, want FAILED", r.Confidence)
	}
	if r.ExtractedText != "garbage, not json" {
		t.Errorf("ExtractedText = %q, want the input", r.ExtractedText)
	}
	assertDefaultFields(t, r)
}

func TestFieldExtractor_Fields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, r ExtractionRecord)
	}{
		{
			name:  "out of range dollar amount skipped",
			input: "Total $12000.00 Paid 12.50 on 2024-01-01",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.Amount.Equal(decimal.RequireFromString("12.50")) {
					t.Errorf("Amount = %s, want 12.50", r.Amount)
				}
			},
		},
		{
			name:  "labelled invoice number",
			input: "Invoice #123456 from Acme Corp",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.InvoiceNumber != "123456" {
					t.Errorf("InvoiceNumber = %q, want 123456", r.InvoiceNumber)
				}
				if r.MerchantName != "Acme Corp" {
					t.Errorf("MerchantName = %q, want Acme Corp", r.MerchantName)
				}
			},
		},
		{
			name:  "letter digit invoice code",
			input: "Reference AB20240 settled",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.InvoiceNumber != "AB20240" {
					t.Errorf("InvoiceNumber = %q, want AB20240", r.InvoiceNumber)
				}
			},
		},
		{
			name:  "labelled tax",
			input: "Subtotal $40.00\nSales Tax: $3.20",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.TaxAmount.Equal(decimal.RequireFromString("3.20")) {
					t.Errorf("TaxAmount = %s, want 3.20", r.TaxAmount)
				}
			},
		},
		{
			name:  "percent tax",
			input: "Includes 8.25% tax",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.TaxAmount.Equal(decimal.RequireFromString("8.25")) {
					t.Errorf("TaxAmount = %s, want 8.25", r.TaxAmount)
				}
			},
		},
		{
			name:  "fractional percent tax",
			input: "8.5% TAX Main Street Deli",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.TaxAmount.Equal(decimal.RequireFromString("8.5")) {
					t.Errorf("TaxAmount = %s, want 8.5", r.TaxAmount)
				}
			},
		},
		{
			name:  "negative dollar amount is not read unsigned",
			input: "Refund $-5.00 The Shop",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.Amount.IsZero() {
					t.Errorf("Amount = %s, want 0", r.Amount)
				}
			},
		},
		{
			name:  "signed plain amount skipped for a later one",
			input: "Adjustment -3.00 then paid 7.25",
			check: func(t *testing.T, r ExtractionRecord) {
				if !r.Amount.Equal(decimal.RequireFromString("7.25")) {
					t.Errorf("Amount = %s, want 7.25", r.Amount)
				}
			},
		},
		{
			name:  "description of exactly ten bytes",
			input: "Paid by cc\nTotal $5.00",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.Description != "Paid by cc" {
					t.Errorf("Description = %q, want Paid by cc", r.Description)
				}
			},
		},
		{
			name:  "description of 99 bytes skipped",
			input: strings.Repeat("x", 99) + "\nSecond line of prose\nTotal $5.00",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.Description != "Second line of prose" {
					t.Errorf("Description = %q, want Second line of prose", r.Description)
				}
			},
		},
		{
			name:  "numeric date and known merchant",
			input: "Paid on 03/15/2024 at Target",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.TransactionDate != "03/15/2024" {
					t.Errorf("TransactionDate = %q, want 03/15/2024", r.TransactionDate)
				}
				if r.MerchantName != "Target" {
					t.Errorf("MerchantName = %q, want Target", r.MerchantName)
				}
			},
		},
		{
			name:  "month name date",
			input: "Visit on 5 March 2024",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.TransactionDate != "5 March 2024" {
					t.Errorf("TransactionDate = %q, want 5 March 2024", r.TransactionDate)
				}
			},
		},
		{
			name:  "receipt boilerplate is not a merchant",
			input: "Thank You\nWalmart",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.MerchantName != "Walmart" {
					t.Errorf("MerchantName = %q, want Walmart", r.MerchantName)
				}
			},
		},
		{
			name:  "ampersand merchant",
			input: "Barnes & Noble\nTotal $20.00",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.MerchantName != "Barnes & Noble" {
					t.Errorf("MerchantName = %q, want Barnes & Noble", r.MerchantName)
				}
			},
		},
		{
			name:  "description from first prose line",
			input: "Monthly internet service\nAmount due $59.99",
			check: func(t *testing.T, r ExtractionRecord) {
				if r.Description != "Monthly internet service" {
					t.Errorf("Description = %q, want Monthly internet service", r.Description)
				}
				if r.Category != CategoryUtilities {
					t.Errorf("Category = %q, want %q", r.Category, CategoryUtilities)
				}
			},
		},
	}

	e := NewFieldExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, e.Extract(tt.input))
		})
	}
}

func TestFieldExtractor_Idempotent(t *testing.T) {
	e := NewFieldExtractor(nil)
	input := "ACME SUPPLY CO\nInvoice 884213\nTotal $120.40\nTax $9.40\n2024-05-17"

	first, err := json.Marshal(e.Extract(input))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(e.Extract(input))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("Extract is not idempotent:\n%s\n%s", first, second)
	}
}

func assertDefaultFields(t *testing.T, r ExtractionRecord) {
	t.Helper()
	if r.MerchantName != "" || r.Currency != "" || r.TransactionDate != "" || r.InvoiceNumber != "" {
		t.Errorf("string fields not defaulted: %+v", r)
	}
	if !r.Amount.IsZero() || !r.TaxAmount.IsZero() || !r.TotalAmount.IsZero() {
		t.Errorf("amounts not zero: %s %s %s", r.Amount, r.TaxAmount, r.TotalAmount)
	}
	if r.Category != CategoryOther {
		t.Errorf("Category = %q, want %q", r.Category, CategoryOther)
	}
	if r.Items == nil || len(r.Items) != 0 {
		t.Errorf("Items = %v, want empty slice", r.Items)
	}
	if r.ProcessingStatus != StatusFailed {
		t.Errorf("ProcessingStatus = %s, want FAILED", r.ProcessingStatus)
	}
}
