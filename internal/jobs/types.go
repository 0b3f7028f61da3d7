package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finassist/internal/dispatch"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the dispatch succeeded.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the dispatch returned a failure. Failed jobs
	// are never retried.
	JobStatusFailed JobStatus = "failed"
)

// OperationJob is one operation envelope dispatched asynchronously.
type OperationJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Request is the envelope to dispatch.
	Request dispatch.Request `json:"request"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Result is the dispatch outcome once the job has run.
	Result *dispatch.Result `json:"result,omitempty"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains the dispatch error message if the job failed.
	Error string `json:"error,omitempty"`
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues an operation job.
	Publish(ctx context.Context, job *OperationJob) error

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

// JobHandler processes a job. A returned error marks the job failed.
type JobHandler func(ctx context.Context, job *OperationJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *OperationJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*OperationJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*OperationJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Entity filters jobs by the envelope entity.
	Entity string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Dispatcher is the part of dispatch.Dispatcher a job needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) *dispatch.Result
}

// DispatchHandler returns a handler that runs the job's envelope through d
// and stores the Result on the job.
func DispatchHandler(d Dispatcher) JobHandler {
	return func(ctx context.Context, job *OperationJob) error {
		job.Result = d.Dispatch(ctx, job.Request)
		return job.Result.Err()
	}
}
