// Package jobs defines asynchronous document extraction jobs and the queue
// and store abstractions that carry them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractDocument represents a document extraction job.
	JobTypeExtractDocument JobType = "extract_document"
)

// DocumentKind selects which extraction runs for a job.
type DocumentKind string

const (
	// KindReceipt extracts a single record from a receipt, bill or invoice.
	KindReceipt DocumentKind = "receipt"
	// KindStatement extracts the transactions of a bank statement.
	KindStatement DocumentKind = "statement"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	return k == KindReceipt || k == KindStatement
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is applied to jobs published without a retry limit.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ExtractDocumentJob represents a job to extract a document stored in GCS.
type ExtractDocumentJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// DocumentID identifies the document in persisted results.
	DocumentID string `json:"document_id"`

	// Kind selects receipt or statement extraction.
	Kind DocumentKind `json:"kind"`

	// GCSURI is the GCS URI of the document to extract.
	GCSURI string `json:"gcs_uri"`

	// MediaType is the declared media type; empty means detect from content.
	MediaType string `json:"media_type,omitempty"`

	// Text is pre-extracted PDF text supplied by the caller.
	Text string `json:"text,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`

	// Receipt holds the result of a receipt job.
	Receipt *extraction.ExtractionRecord `json:"receipt,omitempty"`

	// Transactions holds the result of a statement job.
	Transactions []extraction.TransactionRecord `json:"transactions,omitempty"`

	// SavedIDs are the ids of persisted rows, when persistence is enabled.
	SavedIDs []string `json:"saved_ids,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractDocumentJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExtractDocumentJob) GetType() JobType {
	return JobTypeExtractDocument
}

// GetStatus implements the Job interface.
func (j *ExtractDocumentJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtractDocument publishes a document extraction job. Defaults
	// such as JobID are set on job; the publisher does not keep job after
	// returning, so later state is read from the JobStore.
	PublishExtractDocument(ctx context.Context, job *ExtractDocumentJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried;
// errors wrapped with Permanent fail the job immediately.
type JobHandler func(ctx context.Context, job Job) error

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the queue does not retry it. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or any error it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExtractDocumentJob) error

	// GetJob retrieves a job by ID. Unknown IDs return an error wrapping ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*ExtractDocumentJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractDocumentJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// DocumentID filters jobs by document ID.
	DocumentID string

	// Kind filters jobs by document kind.
	Kind DocumentKind

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
