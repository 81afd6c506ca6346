package extraction

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// envelope mirrors the generateContent response body down to the first text part.
type envelope struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content *candidateContent `json:"content"`
}

type candidateContent struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text *string `json:"text,omitempty"`
}

// EncodeEnvelope wraps model text in a generateContent response body.
func EncodeEnvelope(text string) (string, error) {
	env := envelope{Candidates: []candidate{{
		Content: &candidateContent{Parts: []contentPart{{Text: &text}}},
	}}}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ModelText resolves candidates[0].content.parts[0].text in a response body.
func ModelText(raw string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", &ParseError{Stage: "envelope", Err: err}
	}
	if len(env.Candidates) == 0 {
		return "", &ParseError{Stage: "envelope", Err: errors.New("no candidates")}
	}
	content := env.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return "", &ParseError{Stage: "envelope", Err: errors.New("missing candidates[0].content.parts[0].text")}
	}
	return *content.Parts[0].Text, nil
}

// ResponseParser turns raw model responses into records, falling back to the
// pattern extractors whenever the response cannot be decoded.
type ResponseParser struct {
	fields     *FieldExtractor
	classifier *Classifier
	log        zerolog.Logger
}

// NewResponseParser creates a ResponseParser.
func NewResponseParser(fields *FieldExtractor, classifier *Classifier, log zerolog.Logger) *ResponseParser {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if fields == nil {
		fields = NewFieldExtractor(classifier)
	}
	return &ResponseParser{
		fields:     fields,
		classifier: classifier,
		log:        log,
	}
}

// Parse decodes a single-document response. It never fails: an unreadable
// envelope yields a FAILED pattern record over the raw body, and unreadable
// model JSON yields a pattern record over the model text.
func (p *ResponseParser) Parse(raw string) ExtractionRecord {
	text, err := ModelText(raw)
	if err != nil {
		p.log.Warn().Err(err).Msg("Model envelope unreadable, extracting patterns from raw response")
		r := p.fields.Extract(raw)
		r.Confidence = ConfidenceFailed
		r.ConfidenceLabel = LabelParsingFailed
		r.ProcessingStatus = StatusFailed
		r.ExtractedText = raw
		return r
	}

	obj, repaired, err := decodeReceiptObject(text)
	if err != nil {
		p.log.Warn().Err(err).Msg("Model JSON unreadable, extracting patterns from model text")
		r := p.fields.Extract(text)
		if r.Confidence == ConfidenceLow {
			r.ConfidenceLabel = LabelPatternFallback
		}
		return r
	}

	r := recordFromObject(obj)
	r.Confidence = ConfidenceHigh
	r.ConfidenceLabel = LabelModelParsed
	if repaired {
		p.log.Warn().Msg("Model JSON decoded only after repair")
		r.Confidence = ConfidenceLow
		r.ConfidenceLabel = LabelModelRepaired
	}
	r.ExtractedText = text
	r.Backfill()
	return r
}

// ParseStatement decodes a statement response holding a JSON array of
// {date, description, amount, type}. Entries without a valid date or amount
// are skipped. A *ParseError is returned when no array can be decoded.
func (p *ResponseParser) ParseStatement(raw string) ([]TransactionRecord, error) {
	text, err := ModelText(raw)
	if err != nil {
		return nil, err
	}

	region, ok := cleanModelJSON(text, "[", "]")
	if !ok {
		return nil, &ParseError{Stage: "statement array", Err: errors.New("no JSON array in model text")}
	}

	var entries []interface{}
	repaired, err := decodeLenient(region, &entries, func() bool { return len(entries) > 0 })
	if err != nil {
		return nil, &ParseError{Stage: "statement array", Err: err}
	}
	if repaired {
		p.log.Warn().Int("entries", len(entries)).Msg("Statement JSON decoded only after repair")
	}

	records := make([]TransactionRecord, 0, len(entries))
	for i, item := range entries {
		obj, ok := item.(map[string]interface{})
		if !ok {
			p.log.Debug().Int("index", i).Msg("Skipping non-object statement entry")
			continue
		}
		r, ok := p.transactionFromObject(obj)
		if !ok {
			p.log.Debug().Int("index", i).Msg("Skipping statement entry without date or amount")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeReceiptObject(text string) (obj map[string]interface{}, repaired bool, err error) {
	region, ok := cleanModelJSON(text, "{", "}")
	if !ok {
		return nil, false, &ParseError{Stage: "receipt object", Err: errors.New("no JSON object in model text")}
	}

	repaired, err = decodeLenient(region, &obj, func() bool { return hasAnyKey(obj, receiptKeys) })
	if err != nil {
		return nil, false, &ParseError{Stage: "receipt object", Err: err}
	}
	if obj == nil {
		return nil, false, &ParseError{Stage: "receipt object", Err: errors.New("null object")}
	}
	return obj, repaired, nil
}

func recordFromObject(obj map[string]interface{}) ExtractionRecord {
	r := ExtractionRecord{
		MerchantName:    getStringField(obj, "merchantName"),
		Currency:        getStringField(obj, "currency"),
		TransactionDate: getStringField(obj, "transactionDate"),
		Category:        getStringField(obj, "category"),
		Description:     getStringField(obj, "description"),
		InvoiceNumber:   getStringField(obj, "invoiceNumber"),
		PaymentMethod:   getStringField(obj, "paymentMethod"),
		Items:           getStringSliceField(obj, "items"),
	}
	r.Amount, _ = getDecimalField(obj, "amount")
	r.TaxAmount, _ = getDecimalField(obj, "taxAmount")
	r.TotalAmount, _ = getDecimalField(obj, "totalAmount")
	return r
}

func (p *ResponseParser) transactionFromObject(obj map[string]interface{}) (TransactionRecord, bool) {
	date, ok := ParseDate(getStringField(obj, "date"))
	if !ok {
		return TransactionRecord{}, false
	}
	amount, ok := getDecimalField(obj, "amount")
	if !ok {
		return TransactionRecord{}, false
	}

	desc := collapseSpaces(getStringField(obj, "description"))
	if desc == "" {
		desc = DefaultTransactionDescription
	}

	var txType TransactionType
	switch TransactionType(strings.ToUpper(getStringField(obj, "type"))) {
	case TransactionIncome:
		txType = TransactionIncome
	case TransactionExpense:
		txType = TransactionExpense
	default:
		txType = TransactionIncome
		if amount.IsNegative() {
			txType = TransactionExpense
		}
	}

	category := getStringField(obj, "category")
	if !IsCategory(category) {
		category = p.classifier.Classify(desc)
	}

	return TransactionRecord{
		Date:        date,
		Description: desc,
		Amount:      amount.Abs(),
		Type:        txType,
		Category:    category,
	}, true
}
