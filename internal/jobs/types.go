// Package jobs defines the asynchronous extraction job model and the queue
// abstractions the API and worker are built on.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractStatement represents a statement extraction job.
	JobTypeExtractStatement JobType = "extract_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ExtractStatementJob represents a job to extract a statement archived in GCS.
type ExtractStatementJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// StatementID is the id of the statement row in the ledger store.
	StatementID string `json:"statement_id"`

	// GCSURI is where the archived statement PDF lives.
	GCSURI string `json:"gcs_uri"`

	// Password unlocks an encrypted PDF. Never serialized into status
	// responses.
	Password string `json:"-"`

	// RunID is the id of the extraction run in the ledger store.
	RunID string `json:"run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result holds the merged extraction output once the job completes.
	Result *extract.Result `json:"result,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ExtractStatementJob) GetID() string        { return j.JobID }
func (j *ExtractStatementJob) GetType() JobType     { return JobTypeExtractStatement }
func (j *ExtractStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction keeps the door open for Cloud Tasks or Pub/Sub backends.
type Publisher interface {
	// PublishExtractStatement publishes a statement extraction job.
	PublishExtractStatement(ctx context.Context, job *ExtractStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A non-nil error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can answer status queries.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExtractStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExtractStatementJob, error)

	// ListJobs retrieves jobs matching the filter.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	StatementID string
	Status      JobStatus
	Limit       int
	Offset      int
}
