package extraction

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Image is binary content sent inline with a prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Extractor sends a prompt, optionally with an inline file, to a generative
// model and returns the raw response body.
type Extractor interface {
	Extract(ctx context.Context, prompt string, image *Image) (string, error)
}

// Orchestrator runs the model call and the deterministic fallbacks for one document.
// It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	client  Extractor
	parser  *ResponseParser
	fields  *FieldExtractor
	lines   *LineExtractor
	maxSize int64
	log     zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. maxSize <= 0 selects MaxDocumentSize.
func NewOrchestrator(client Extractor, maxSize int64, log zerolog.Logger) *Orchestrator {
	classifier := DefaultClassifier()
	fields := NewFieldExtractor(classifier)
	return &Orchestrator{
		client:  client,
		parser:  NewResponseParser(fields, classifier, log),
		fields:  fields,
		lines:   NewLineExtractor(classifier),
		maxSize: maxSize,
		log:     log,
	}
}

// ExtractReceipt extracts a single record from a receipt, bill or invoice.
// Only a *ValidationError is ever returned; every later failure degrades to
// a pattern-extracted or all-default record.
func (o *Orchestrator) ExtractReceipt(ctx context.Context, doc Document) (ExtractionRecord, error) {
	doc, err := ValidateDocument(doc, o.maxSize)
	if err != nil {
		return ExtractionRecord{}, err
	}

	log := o.log.With().Str("filename", doc.Filename).Str("media_type", doc.MediaType).Logger()

	text := doc.SourceText()
	var prompt string
	var image *Image
	switch {
	case doc.IsImage():
		prompt = ReceiptPrompt()
		image = &Image{MIMEType: doc.MediaType, Data: doc.Data}
	case doc.IsPDF() && strings.TrimSpace(text) == "":
		prompt = DocumentPrompt("")
		image = &Image{MIMEType: doc.MediaType, Data: doc.Data}
	default:
		if strings.TrimSpace(text) == "" {
			log.Warn().Err(ErrEmptyResult).Msg("Document has no text content")
			r := EmptyRecord(LabelNoContent)
			r.ExtractedText = text
			return r, nil
		}
		prompt = DocumentPrompt(text)
	}

	raw, err := o.call(ctx, prompt, image)
	if err != nil {
		log.Warn().Err(err).Msg("Model call failed, falling back to pattern extraction")
		r := o.fields.Extract(text)
		if r.Confidence == ConfidenceFailed {
			r.ConfidenceLabel = LabelProcessingFail
		}
		return r, nil
	}

	r := o.parser.Parse(raw)
	if r.Confidence == ConfidenceFailed {
		log.Warn().Err(ErrEmptyResult).Str("confidence_label", r.ConfidenceLabel).Msg("Extraction produced a default record")
	} else {
		log.Debug().Str("confidence", string(r.Confidence)).Msg("Extraction completed")
	}
	r.Backfill()
	return r, nil
}

// ExtractTransactions extracts the dated transactions of a bank statement.
// Model output is preferred; when the call fails or yields nothing the
// statement text goes through the line extractor.
func (o *Orchestrator) ExtractTransactions(ctx context.Context, doc Document) ([]TransactionRecord, error) {
	doc, err := ValidateDocument(doc, o.maxSize)
	if err != nil {
		return nil, err
	}

	log := o.log.With().Str("filename", doc.Filename).Str("media_type", doc.MediaType).Logger()

	text := doc.SourceText()
	var image *Image
	if doc.IsImage() || (doc.IsPDF() && strings.TrimSpace(text) == "") {
		image = &Image{MIMEType: doc.MediaType, Data: doc.Data}
	} else if strings.TrimSpace(text) == "" {
		log.Warn().Err(ErrEmptyResult).Msg("Statement has no text content")
		return []TransactionRecord{}, nil
	}

	raw, err := o.call(ctx, StatementPrompt(text), image)
	if err == nil {
		var records []TransactionRecord
		records, err = o.parser.ParseStatement(raw)
		if err == nil && len(records) > 0 {
			log.Debug().Int("count", len(records)).Msg("Statement parsed from model output")
			return records, nil
		}
		if err == nil {
			err = ErrEmptyResult
		}
	}

	log.Warn().Err(err).Msg("Model statement extraction failed, falling back to line extraction")
	records := o.lines.Extract(text)
	if len(records) == 0 {
		log.Warn().Err(ErrEmptyResult).Msg("No transactions recovered")
	}
	return records, nil
}

type callResult struct {
	raw string
	err error
}

// call performs the model request and returns as soon as ctx is done, even if
// the client has not yet returned.
func (o *Orchestrator) call(ctx context.Context, prompt string, image *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UpstreamError{Err: err}
	}
	if o.client == nil {
		return "", &UpstreamError{Err: errNoClient}
	}

	done := make(chan callResult, 1)
	go func() {
		raw, err := o.client.Extract(ctx, prompt, image)
		done <- callResult{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", &UpstreamError{Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return res.raw, nil
	}
}
