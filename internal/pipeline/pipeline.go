// Package pipeline runs queued extraction jobs: fetch the document, extract
// it, persist the results and record the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
)

const maxErrorMessageLen = 2000

// Run statuses written to extraction_runs.
const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Deps are the collaborators of an Ingestor. Fetcher and Store may be nil
// when documents always carry their content or persistence is disabled.
type Deps struct {
	Fetcher   Fetcher
	Extractor Extractor
	Store     ResultStore
	ModelName string
	Log       zerolog.Logger
}

// Ingestor runs the extraction pipeline for one document at a time and
// records every run, successful or not.
type Ingestor struct {
	pipeline  *Pipeline
	store     ResultStore
	modelName string
	log       zerolog.Logger
	now       func() time.Time
}

// NewIngestor creates an Ingestor with the standard pipeline.
func NewIngestor(deps Deps) *Ingestor {
	model := deps.ModelName
	if model == "" {
		model = extraction.DefaultModelName
	}
	return &Ingestor{
		pipeline:  NewExtractionPipeline(deps.Fetcher, deps.Extractor, deps.Store),
		store:     deps.Store,
		modelName: model,
		log:       deps.Log,
		now:       time.Now,
	}
}

// Ingest runs the pipeline over state. A failure to record the run is logged
// and does not change the result.
func (i *Ingestor) Ingest(ctx context.Context, state *PipelineState) error {
	if state.DocumentID == "" {
		state.DocumentID = uuid.NewString()
	}
	log := i.log.With().
		Str("document_id", state.DocumentID).
		Str("kind", string(state.Kind)).
		Logger()

	started := i.now()
	err := i.pipeline.Execute(ctx, state)
	finished := i.now()

	if err != nil {
		log.Error().Err(err).Str("gcs_uri", state.GCSURI).Msg("Extraction pipeline failed")
	} else {
		log.Info().Int("records", state.RecordCount()).Dur("elapsed", finished.Sub(started)).Msg("Document extracted")
	}

	if i.store != nil {
		row := i.runRow(state, started, finished, err)
		if recErr := i.store.RecordRun(ctx, row); recErr != nil {
			log.Error().Err(recErr).Str("run_id", row.RunID).Msg("Failed to record extraction run")
		}
	}
	return err
}

// HandleJob is a jobs.JobHandler. Results are copied back onto the job so
// the queue stores them with its final status.
func (i *Ingestor) HandleJob(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.ExtractDocumentJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unsupported job type %s", job.GetType()))
	}

	state := &PipelineState{
		JobID:      j.JobID,
		DocumentID: j.DocumentID,
		Kind:       j.Kind,
		GCSURI:     j.GCSURI,
		MediaType:  j.MediaType,
		Text:       j.Text,
	}
	err := i.Ingest(ctx, state)

	j.DocumentID = state.DocumentID
	j.Receipt = state.Receipt
	j.Transactions = state.Transactions
	j.SavedIDs = state.SavedIDs
	return err
}

func (i *Ingestor) runRow(state *PipelineState, started, finished time.Time, err error) *infra.ExtractionRunRow {
	row := &infra.ExtractionRunRow{
		RunID:       uuid.NewString(),
		DocumentID:  state.DocumentID,
		Kind:        string(state.Kind),
		SourceURI:   bigquery.NullString{StringVal: state.GCSURI, Valid: state.GCSURI != ""},
		StartedTS:   started,
		FinishedTS:  bigquery.NullTimestamp{Timestamp: finished, Valid: true},
		ModelName:   i.modelName,
		Status:      RunStatusSuccess,
		RecordCount: int64(state.RecordCount()),
	}
	if state.Receipt != nil {
		row.Confidence = bigquery.NullString{StringVal: string(state.Receipt.Confidence), Valid: true}
		row.ConfidenceLabel = bigquery.NullString{StringVal: state.Receipt.ConfidenceLabel, Valid: true}
	}
	if err != nil {
		msg := err.Error()
		if len(msg) > maxErrorMessageLen {
			msg = msg[:maxErrorMessageLen]
		}
		row.Status = RunStatusFailed
		row.ErrorMessage = bigquery.NullString{StringVal: msg, Valid: true}
	}
	return row
}
