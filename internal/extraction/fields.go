package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	dollarAmountRe = regexp.MustCompile(`\$\s*([+-]?\d+(?:\.\d{2})?)`)
	// No leading sign or word character, so "$-5.00" never yields 5.00.
	plainAmountRe  = regexp.MustCompile(`(?:^|[^-\w.])(\d+\.\d{2})\b`)

	isoDateRe       = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	numericDateRe   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
	monthNameDateRe = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{2,4})\b`)

	// Merchant patterns do not span lines.
	capitalizedNameRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2})\b`)
	acronymNameRe     = regexp.MustCompile(`\b([A-Z]{2,}(?:[ \t]+[A-Z]{2,})+)\b`)
	ampersandNameRe   = regexp.MustCompile(`\b([A-Z][a-z]+[ \t]+&[ \t]+[A-Z][a-z]+)\b`)
	knownMerchantRe   = regexp.MustCompile(`(?i)\b(Walmart|Target|Starbucks|Amazon|Costco)\b`)

	dollarDigitsRe = regexp.MustCompile(`\$\s*\d+`)
	bareFullNameRe = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+$`)
	invoiceLabelRe = regexp.MustCompile(`(?i)\b(?:INV|INVOICE|RECEIPT)\s*#?\s*(\d+)\b`)
	longNumberRe   = regexp.MustCompile(`\b(\d{6,})\b`)
	letterDigitRe  = regexp.MustCompile(`\b([A-Z]{2,}\d{4,})\b`)
	taxLabelRe     = regexp.MustCompile(`(?i)\b(?:SALES\s+TAX|TAX)\s*:?\s*\$?\s*(\d+(?:\.\d{2})?)\b`)
	taxPercentRe   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*%\s*TAX\b`)
)

// merchantStopWords are never accepted as a merchant on their own.
var merchantStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
}

// receiptWords are labels printed on receipts; a candidate made only of them is not a merchant.
var receiptWords = map[string]bool{
	"receipt": true, "total": true, "subtotal": true, "sub": true, "invoice": true,
	"tax": true, "sales": true, "amount": true, "date": true, "balance": true,
	"due": true, "paid": true, "payment": true, "change": true, "cash": true,
	"card": true, "thank": true, "you": true, "order": true, "number": true,
	"item": true, "items": true, "qty": true, "price": true, "statement": true,
	"customer": true, "copy": true,
}

// FieldExtractor recovers receipt fields from plain text with ordered regex cascades.
type FieldExtractor struct {
	classifier *Classifier

	amount   []Strategy[decimal.Decimal]
	date     []Strategy[string]
	merchant []Strategy[string]
	invoice  []Strategy[string]
	tax      []Strategy[decimal.Decimal]
}

// NewFieldExtractor creates a FieldExtractor. A nil classifier selects the default one.
func NewFieldExtractor(classifier *Classifier) *FieldExtractor {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &FieldExtractor{
		classifier: classifier,
		amount: []Strategy[decimal.Decimal]{
			{Name: "dollar-amount", Run: firstAmount(dollarAmountRe, InReceiptRange)},
			{Name: "two-decimal-amount", Run: firstAmount(plainAmountRe, InReceiptRange)},
		},
		date: []Strategy[string]{
			{Name: "iso-date", Run: firstMatch(isoDateRe, nil)},
			{Name: "numeric-date", Run: firstMatch(numericDateRe, nil)},
			{Name: "month-name-date", Run: firstMatch(monthNameDateRe, nil)},
		},
		merchant: []Strategy[string]{
			{Name: "capitalized-words", Run: firstMatch(capitalizedNameRe, isMerchantName)},
			{Name: "acronym-words", Run: firstMatch(acronymNameRe, isMerchantName)},
			{Name: "ampersand-name", Run: firstMatch(ampersandNameRe, isMerchantName)},
			{Name: "known-merchant", Run: firstMatch(knownMerchantRe, isMerchantName)},
		},
		invoice: []Strategy[string]{
			{Name: "labelled-invoice", Run: firstMatch(invoiceLabelRe, nil)},
			{Name: "long-number", Run: firstMatch(longNumberRe, nil)},
			{Name: "letter-digit-code", Run: firstMatch(letterDigitRe, nil)},
		},
		tax: []Strategy[decimal.Decimal]{
			{Name: "labelled-tax", Run: firstAmount(taxLabelRe, InReceiptRange)},
			{Name: "percent-tax", Run: firstAmount(taxPercentRe, InReceiptRange)},
		},
	}
}

// Extract runs every field cascade over text. Empty input, or input where no
// document-specific field is found, yields an all-default record with FAILED confidence.
func (e *FieldExtractor) Extract(text string) ExtractionRecord {
	if strings.TrimSpace(text) == "" {
		r := EmptyRecord(LabelNoContent)
		r.ExtractedText = text
		return r
	}

	r, err := e.recover(text)
	if err != nil {
		r = EmptyRecord(LabelProcessingFail)
	}
	r.ExtractedText = text
	return r
}

func (e *FieldExtractor) recover(text string) (ExtractionRecord, error) {
	var r ExtractionRecord

	if amount, _, ok := Cascade(text, e.amount); ok {
		r.Amount = amount
		r.Currency = DefaultCurrency
	}
	r.TransactionDate, _, _ = Cascade(text, e.date)
	r.MerchantName, _, _ = Cascade(text, e.merchant)
	r.InvoiceNumber, _, _ = Cascade(text, e.invoice)
	r.TaxAmount, _, _ = Cascade(text, e.tax)

	if !r.hasRecoveredFields() {
		return ExtractionRecord{}, ErrEmptyResult
	}

	r.Category = e.classifier.Classify(text)
	r.Description = describe(text)
	r.Confidence = ConfidenceLow
	r.ConfidenceLabel = LabelPatternOnly
	r.Backfill()
	return r, nil
}

// firstMatch returns the first submatch of re's last capture group accepted by keep.
func firstMatch(re *regexp.Regexp, keep func(string) bool) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v := strings.TrimSpace(m[len(m)-1])
			if v == "" {
				continue
			}
			if keep == nil || keep(v) {
				return v, true
			}
		}
		return "", false
	}
}

// firstAmount returns the first parsable amount matched by re that satisfies inRange.
func firstAmount(re *regexp.Regexp, inRange func(decimal.Decimal) bool) func(string) (decimal.Decimal, bool) {
	return func(text string) (decimal.Decimal, bool) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			d, err := ParseAmount(m[len(m)-1])
			if err != nil || !inRange(d) {
				continue
			}
			return d, true
		}
		return decimal.Zero, false
	}
}

func isMerchantName(candidate string) bool {
	words := strings.Fields(strings.ToLower(candidate))
	if len(words) == 0 {
		return false
	}
	if len(words) == 1 && merchantStopWords[words[0]] {
		return false
	}
	for _, w := range words {
		if w == "&" {
			continue
		}
		if !receiptWords[w] && !merchantStopWords[w] {
			return true
		}
	}
	return false
}

// describe picks the first line of 10 to 98 bytes that reads like prose rather
// than a date, amount or name.
func describe(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 10 || len(line) >= 99 {
			continue
		}
		if isoDateRe.MatchString(line) || dollarDigitsRe.MatchString(line) || bareFullNameRe.MatchString(line) {
			continue
		}
		return line
	}
	return DefaultDescription
}
