package extraction_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// stubExtractor is a hand-written Extractor for orchestrator tests.
type stubExtractor struct {
	ExtractFunc func(ctx context.Context, prompt string, image *extraction.Image) (string, error)

	mu     sync.Mutex
	calls  int
	prompt string
	image  *extraction.Image
}

func (s *stubExtractor) Extract(ctx context.Context, prompt string, image *extraction.Image) (string, error) {
	s.mu.Lock()
	s.calls++
	s.prompt = prompt
	s.image = image
	s.mu.Unlock()
	if s.ExtractFunc != nil {
		return s.ExtractFunc(ctx, prompt, image)
	}
	return "", errors.New("not implemented")
}

func (s *stubExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func respondWith(t *testing.T, text string) func(context.Context, string, *extraction.Image) (string, error) {
	t.Helper()
	raw, err := extraction.EncodeEnvelope(text)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	return func(context.Context, string, *extraction.Image) (string, error) {
		return raw, nil
	}
}

func failWith(err error) func(context.Context, string, *extraction.Image) (string, error) {
	return func(context.Context, string, *extraction.Image) (string, error) {
		return "", err
	}
}

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pdfData = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj")
)

const receiptText = "Starbucks\nLatte $4.50\n2024-01-15"

func textDoc(text string) extraction.Document {
	return extraction.Document{Filename: "receipt.txt", MediaType: extraction.MediaTypeText, Data: []byte(text)}
}

func TestOrchestrator_ExtractReceipt_Image(t *testing.T) {
	stub := &stubExtractor{ExtractFunc: respondWith(t, `{"merchantName":"Cafe Luna","amount":12.50,"category":"Food & Dining"}`)}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), extraction.Document{Filename: "r.png", MediaType: "image/png", Data: pngData})
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}

	if stub.callCount() != 1 {
		t.Fatalf("client called %d times, want 1", stub.callCount())
	}
	if stub.image == nil || stub.image.MIMEType != "image/png" {
		t.Errorf("image = %+v, want image/png attachment", stub.image)
	}
	if !strings.Contains(stub.prompt, "receipt image") {
		t.Errorf("prompt = %q, want the receipt image prompt", stub.prompt)
	}
	if r.Confidence != extraction.ConfidenceHigh || r.MerchantName != "Cafe Luna" {
		t.Errorf("record = %+v, want HIGH Cafe Luna", r)
	}
	if !r.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Amount = %s, want 12.50", r.Amount)
	}
}

func TestOrchestrator_ExtractReceipt_UpstreamErrorFallsBackToPatterns(t *testing.T) {
	stub := &stubExtractor{ExtractFunc: failWith(&extraction.UpstreamError{StatusCode: 500, Body: "boom"})}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), textDoc(receiptText))
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}

	if r.Confidence != extraction.ConfidenceLow || r.ConfidenceLabel != extraction.LabelPatternOnly {
		t.Errorf("Confidence = %s %q, want LOW %q", r.Confidence, r.ConfidenceLabel, extraction.LabelPatternOnly)
	}
	if r.MerchantName != "Starbucks" || r.TransactionDate != "2024-01-15" {
		t.Errorf("record = %+v, want Starbucks on 2024-01-15", r)
	}
	if !r.Amount.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("Amount = %s, want 4.50", r.Amount)
	}
	if !strings.Contains(stub.prompt, "Document content:\n"+receiptText) {
		t.Errorf("prompt should embed the document text, got %q", stub.prompt)
	}
}

func TestOrchestrator_ExtractReceipt_ImageUpstreamErrorFails(t *testing.T) {
	stub := &stubExtractor{ExtractFunc: failWith(errors.New("connection refused"))}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), extraction.Document{MediaType: "image/png", Data: pngData})
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}

	if r.Confidence != extraction.ConfidenceFailed || r.ConfidenceLabel != extraction.LabelProcessingFail {
		t.Errorf("Confidence = %s %q, want FAILED %q", r.Confidence, r.ConfidenceLabel, extraction.LabelProcessingFail)
	}
	if r.ProcessingStatus != extraction.StatusFailed || r.Category != extraction.CategoryOther {
		t.Errorf("record = %+v, want FAILED status and Other category", r)
	}
}

func TestOrchestrator_ExtractReceipt_CancelledContextSkipsCall(t *testing.T) {
	stub := &stubExtractor{ExtractFunc: respondWith(t, `{"merchantName":"Never"}`)}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := o.ExtractReceipt(ctx, textDoc(receiptText))
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if stub.callCount() != 0 {
		t.Errorf("client called %d times, want 0", stub.callCount())
	}
	if r.Confidence != extraction.ConfidenceLow {
		t.Errorf("Confidence = %s, want LOW", r.Confidence)
	}
}

func TestOrchestrator_ExtractReceipt_DeadlineWhileClientBlocks(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stub := &stubExtractor{ExtractFunc: func(context.Context, string, *extraction.Image) (string, error) {
		<-release
		return "", nil
	}}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	r, err := o.ExtractReceipt(ctx, textDoc(receiptText))
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("ExtractReceipt() took %s, want it to return at the deadline", elapsed)
	}
	if r.Confidence != extraction.ConfidenceLow || r.MerchantName != "Starbucks" {
		t.Errorf("record = %+v, want LOW Starbucks", r)
	}
}

func TestOrchestrator_ExtractReceipt_BlankTextSkipsCall(t *testing.T) {
	stub := &stubExtractor{}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), textDoc("   \n\t  "))
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if stub.callCount() != 0 {
		t.Errorf("client called %d times, want 0", stub.callCount())
	}
	if r.Confidence != extraction.ConfidenceFailed || r.ConfidenceLabel != extraction.LabelNoContent {
		t.Errorf("Confidence = %s %q, want FAILED %q", r.Confidence, r.ConfidenceLabel, extraction.LabelNoContent)
	}
}

func TestOrchestrator_ExtractReceipt_PDFWithoutTextSentInline(t *testing.T) {
	stub := &stubExtractor{ExtractFunc: respondWith(t, `{"merchantName":"City Power","amount":80.00,"category":"Utilities"}`)}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), extraction.Document{Filename: "bill.pdf", MediaType: "application/pdf", Data: pdfData})
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if stub.image == nil || stub.image.MIMEType != extraction.MediaTypePDF {
		t.Errorf("image = %+v, want inline PDF", stub.image)
	}
	if r.Category != extraction.CategoryUtilities || r.Confidence != extraction.ConfidenceHigh {
		t.Errorf("record = %+v, want HIGH Utilities", r)
	}
}

func TestOrchestrator_ExtractReceipt_NoClient(t *testing.T) {
	o := extraction.NewOrchestrator(nil, 0, zerolog.Nop())

	r, err := o.ExtractReceipt(context.Background(), textDoc(receiptText))
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if r.Confidence != extraction.ConfidenceLow {
		t.Errorf("Confidence = %s, want LOW", r.Confidence)
	}
}

func TestOrchestrator_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  extraction.Document
		max  int64
	}{
		{name: "empty", doc: extraction.Document{MediaType: "image/png"}},
		{name: "too large", doc: extraction.Document{MediaType: "image/png", Data: pngData}, max: 8},
		{name: "unsupported", doc: extraction.Document{MediaType: "application/zip", Data: []byte("PK\x03\x04")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExtractor{}
			o := extraction.NewOrchestrator(stub, tt.max, zerolog.Nop())

			_, err := o.ExtractReceipt(context.Background(), tt.doc)
			var vErr *extraction.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("ExtractReceipt() error = %v, want *ValidationError", err)
			}

			_, err = o.ExtractTransactions(context.Background(), tt.doc)
			if !errors.As(err, &vErr) {
				t.Errorf("ExtractTransactions() error = %v, want *ValidationError", err)
			}

			if stub.callCount() != 0 {
				t.Errorf("client called %d times, want 0", stub.callCount())
			}
		})
	}
}

const statementText = "2024-01-05 Grocery Store -23.50\n2024-01-06 Coffee Shop 4.75"

func TestOrchestrator_ExtractTransactions(t *testing.T) {
	tests := []struct {
		name      string
		extract   func(context.Context, string, *extraction.Image) (string, error)
		wantCount int
		wantFirst string
	}{
		{
			name:      "model array",
			extract:   respondWith(t, `[{"date":"2024-01-05","description":"Grocery Store","amount":-23.50,"type":"EXPENSE"}]`),
			wantCount: 1,
			wantFirst: "Grocery Store",
		},
		{
			name:      "garbage falls back to lines",
			extract:   respondWith(t, "I cannot help with that"),
			wantCount: 2,
			wantFirst: "Grocery Store",
		},
		{
			name:      "empty array falls back to lines",
			extract:   respondWith(t, "[]"),
			wantCount: 2,
			wantFirst: "Grocery Store",
		},
		{
			name:      "upstream error falls back to lines",
			extract:   failWith(&extraction.UpstreamError{StatusCode: 503, Body: "unavailable"}),
			wantCount: 2,
			wantFirst: "Grocery Store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExtractor{ExtractFunc: tt.extract}
			o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

			got, err := o.ExtractTransactions(context.Background(), textDoc(statementText))
			if err != nil {
				t.Fatalf("ExtractTransactions() error = %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("ExtractTransactions() returned %d records, want %d: %+v", len(got), tt.wantCount, got)
			}
			if got[0].Description != tt.wantFirst {
				t.Errorf("first description = %q, want %q", got[0].Description, tt.wantFirst)
			}
			if !strings.Contains(stub.prompt, "Statement content:\n"+statementText) {
				t.Errorf("prompt should embed the statement text")
			}
		})
	}
}

func TestOrchestrator_ExtractTransactions_BlankText(t *testing.T) {
	stub := &stubExtractor{}
	o := extraction.NewOrchestrator(stub, 0, zerolog.Nop())

	got, err := o.ExtractTransactions(context.Background(), textDoc("  \n "))
	if err != nil {
		t.Fatalf("ExtractTransactions() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ExtractTransactions() = %v, want empty non-nil slice", got)
	}
	if stub.callCount() != 0 {
		t.Errorf("client called %d times, want 0", stub.callCount())
	}
}
