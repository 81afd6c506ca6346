package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

// ErrNoSource is returned when a document has neither content nor a URI to fetch it from.
var ErrNoSource = errors.New("document has no content and no source URI")

// PipelineStep represents a single step in the extraction pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	JobID      string
	DocumentID string
	Kind       jobs.DocumentKind
	GCSURI     string
	Filename   string
	MediaType  string
	Text       string
	Data       []byte

	Receipt      *extraction.ExtractionRecord
	Transactions []extraction.TransactionRecord
	SavedIDs     []string
}

// RecordCount is the number of records extracted so far.
func (s *PipelineState) RecordCount() int {
	if s.Receipt != nil {
		return 1
	}
	return len(s.Transactions)
}

func (s *PipelineState) source() infra.Source {
	return infra.Source{
		DocumentID: s.DocumentID,
		URI:        s.GCSURI,
		Filename:   s.Filename,
		MediaType:  s.MediaType,
	}
}

// Step 1: FetchDocumentStep downloads the document from GCS.
// Documents that already carry their content are left untouched.
type FetchDocumentStep struct {
	Fetcher Fetcher
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Data) > 0 {
		return nil
	}
	if state.GCSURI == "" {
		return jobs.Permanent(ErrNoSource)
	}
	if _, _, err := storage.ParseURI(state.GCSURI); err != nil {
		return jobs.Permanent(err)
	}
	if s.Fetcher == nil {
		return jobs.Permanent(fmt.Errorf("no storage configured to fetch %s", state.GCSURI))
	}

	data, err := s.Fetcher.Fetch(ctx, state.GCSURI)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", state.GCSURI, err)
	}
	state.Data = data
	if state.Filename == "" {
		state.Filename = storage.FilenameFromURI(state.GCSURI)
	}
	return nil
}

// Step 2: ExtractStep runs receipt or statement extraction on the fetched document.
type ExtractStep struct {
	Extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	doc := extraction.Document{
		Filename:  state.Filename,
		MediaType: state.MediaType,
		Data:      state.Data,
		Text:      state.Text,
	}

	switch state.Kind {
	case jobs.KindReceipt:
		rec, err := s.Extractor.ExtractReceipt(ctx, doc)
		if err != nil {
			return permanentIfInvalid(err)
		}
		state.Receipt = &rec
	case jobs.KindStatement:
		records, err := s.Extractor.ExtractTransactions(ctx, doc)
		if err != nil {
			return permanentIfInvalid(err)
		}
		state.Transactions = records
	default:
		return jobs.Permanent(fmt.Errorf("unknown document kind %q", state.Kind))
	}
	return nil
}

// Step 3: SaveResultsStep persists the extracted records. A nil Store skips persistence.
type SaveResultsStep struct {
	Store ResultStore
}

func (s *SaveResultsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Store == nil {
		return nil
	}

	src := state.source()
	switch {
	case state.Receipt != nil:
		id, err := s.Store.SaveReceipt(ctx, *state.Receipt, src)
		if err != nil {
			return fmt.Errorf("saving receipt: %w", err)
		}
		state.SavedIDs = []string{id}
	case len(state.Transactions) > 0:
		ids, err := s.Store.SaveTransactions(ctx, state.Transactions, src)
		if err != nil {
			return fmt.Errorf("saving transactions: %w", err)
		}
		state.SavedIDs = ids
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewExtractionPipeline creates the standard fetch, extract and save pipeline.
func NewExtractionPipeline(fetcher Fetcher, extractor Extractor, store ResultStore) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Fetcher: fetcher},
		&ExtractStep{Extractor: extractor},
		&SaveResultsStep{Store: store},
	)
}

func permanentIfInvalid(err error) error {
	var verr *extraction.ValidationError
	if errors.As(err, &verr) {
		return jobs.Permanent(err)
	}
	return err
}
