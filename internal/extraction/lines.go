package extraction

import (
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const minStatementLineLength = 10

// statementNumber is an unsigned integer part, with or without thousands separators.
const statementNumber = `(?:\d{1,3}(?:,\d{3})+|\d+)`

var (
	lineISODateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	lineSlashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	lineDashDateRe  = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`)

	// Amount candidates must stand alone between whitespace so digits inside dates are ignored.
	lineDollarAmountRe  = regexp.MustCompile(`(?:^|\s)([+-]?\$\s*[+-]?` + statementNumber + `(?:\.\d{2})?)(?:\s|$)`)
	lineDecimalAmountRe = regexp.MustCompile(`(?:^|\s)([+-]?` + statementNumber + `\.\d{2})(?:\s|$)`)
	lineWholeAmountRe   = regexp.MustCompile(`(?:^|\s)([+-]?` + statementNumber + `)(?:\s|$)`)
)

// textPattern is one whole-text statement pattern with the capture group of each field.
type textPattern struct {
	name      string
	re        *regexp.Regexp
	dateIdx   int
	descIdx   int
	amountIdx int
}

const textAmount = `([+-]?` + statementNumber + `\.\d{2})`

var wholeTextPatterns = []textPattern{
	{name: "iso-date-first", re: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(.+?)\s+` + textAmount), dateIdx: 1, descIdx: 2, amountIdx: 3},
	{name: "slash-date-first", re: regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+(.+?)\s+` + textAmount), dateIdx: 1, descIdx: 2, amountIdx: 3},
	{name: "dash-date-first", re: regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})\s+(.+?)\s+` + textAmount), dateIdx: 1, descIdx: 2, amountIdx: 3},
	{name: "date-last", re: regexp.MustCompile(`(.+?)\s+` + textAmount + `\s+(\d{1,2}/\d{1,2}/\d{4})`), dateIdx: 3, descIdx: 1, amountIdx: 2},
}

// span is a matched value and its byte offsets in the searched string.
type span[T any] struct {
	value      T
	start, end int
}

// LineExtractor recovers statement transactions from plain text.
//
// Two strategies run in order. The per-line strategy reads one transaction per
// line and treats a non-negative amount as an EXPENSE. The whole-text strategy
// runs only when the first yields nothing; it applies four patterns across the
// full text, keeps every match of every pattern (so a row can be reported more
// than once) and treats a non-negative amount as INCOME.
type LineExtractor struct {
	classifier *Classifier
	dates      []Strategy[span[civil.Date]]
	amounts    []Strategy[span[decimal.Decimal]]
}

// NewLineExtractor creates a LineExtractor. A nil classifier selects the default one.
func NewLineExtractor(classifier *Classifier) *LineExtractor {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &LineExtractor{
		classifier: classifier,
		dates: []Strategy[span[civil.Date]]{
			{Name: "iso-date", Run: firstDate(lineISODateRe)},
			{Name: "slash-date", Run: firstDate(lineSlashDateRe)},
			{Name: "dash-date", Run: firstDate(lineDashDateRe)},
		},
		amounts: []Strategy[span[decimal.Decimal]]{
			{Name: "dollar-amount", Run: firstStandaloneAmount(lineDollarAmountRe)},
			{Name: "decimal-amount", Run: firstStandaloneAmount(lineDecimalAmountRe)},
			{Name: "whole-amount", Run: firstStandaloneAmount(lineWholeAmountRe)},
		},
	}
}

// Extract returns the transactions found in text in document order.
// The result is never nil.
func (e *LineExtractor) Extract(text string) []TransactionRecord {
	if records := e.perLine(text); len(records) > 0 {
		return records
	}
	return e.wholeText(text)
}

func (e *LineExtractor) perLine(text string) []TransactionRecord {
	records := []TransactionRecord{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < minStatementLineLength {
			continue
		}
		if r, ok := e.parseLine(line); ok {
			records = append(records, r)
		}
	}
	return records
}

func (e *LineExtractor) parseLine(line string) (TransactionRecord, bool) {
	date, _, ok := Cascade(line, e.dates)
	if !ok {
		return TransactionRecord{}, false
	}
	rest := line[:date.start] + " " + line[date.end:]

	amount, _, ok := Cascade(rest, e.amounts)
	if !ok {
		return TransactionRecord{}, false
	}
	desc := collapseSpaces(rest[:amount.start] + " " + rest[amount.end:])
	if len(desc) <= 5 || len(desc) >= 100 {
		desc = DefaultTransactionDescription
	}

	txType := TransactionExpense
	if amount.value.IsNegative() {
		txType = TransactionIncome
	}

	return TransactionRecord{
		Date:        date.value,
		Description: desc,
		Amount:      amount.value.Abs(),
		Type:        txType,
		Category:    e.classifier.Classify(desc),
	}, true
}

func (e *LineExtractor) wholeText(text string) []TransactionRecord {
	records := []TransactionRecord{}
	for _, p := range wholeTextPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			date, ok := ParseDate(m[p.dateIdx])
			if !ok {
				continue
			}
			amount, err := ParseAmount(m[p.amountIdx])
			if err != nil {
				continue
			}
			desc := collapseSpaces(m[p.descIdx])
			if desc == "" {
				desc = DefaultTransactionDescription
			}

			txType := TransactionIncome
			if amount.IsNegative() {
				txType = TransactionExpense
			}

			records = append(records, TransactionRecord{
				Date:        date,
				Description: desc,
				Amount:      amount.Abs(),
				Type:        txType,
				Category:    e.classifier.Classify(desc),
			})
		}
	}
	return records
}

// firstDate returns the first candidate matched by re that parses as a date.
func firstDate(re *regexp.Regexp) func(string) (span[civil.Date], bool) {
	return func(line string) (span[civil.Date], bool) {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if d, ok := ParseDate(line[loc[0]:loc[1]]); ok {
				return span[civil.Date]{value: d, start: loc[0], end: loc[1]}, true
			}
		}
		return span[civil.Date]{}, false
	}
}

// firstStandaloneAmount returns the first whitespace-delimited amount matched by
// re whose magnitude is within the statement range.
func firstStandaloneAmount(re *regexp.Regexp) func(string) (span[decimal.Decimal], bool) {
	return func(s string) (span[decimal.Decimal], bool) {
		offset := 0
		for offset <= len(s) {
			loc := re.FindStringSubmatchIndex(s[offset:])
			if loc == nil {
				break
			}
			start, end := offset+loc[2], offset+loc[3]
			if d, err := ParseAmount(s[start:end]); err == nil && InStatementRange(d) {
				return span[decimal.Decimal]{value: d, start: start, end: end}, true
			}
			offset = end
		}
		return span[decimal.Decimal]{}, false
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
