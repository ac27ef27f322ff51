package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the state of a job run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind names the work a job performs and selects its executor
type JobKind string

// JobKindReceiptRepair regenerates receipts that failed to render at issue time
const JobKindReceiptRepair JobKind = "RECEIPT_REPAIR"

// Job is one submitted unit of work. Attempt counts executions so far.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Status      JobStatus
	Attempt     int
	MaxAttempts int
	LastError   string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewJob returns a pending job allowed maxAttempts executions (at least one)
func NewJob(kind JobKind, maxAttempts int) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Status:      JobStatusPending,
		MaxAttempts: max(maxAttempts, 1),
		SubmittedAt: time.Now(),
	}
}

func (j *Job) begin() {
	j.Attempt++
	j.Status = JobStatusRunning
	j.StartedAt = time.Now()
	j.FinishedAt = time.Time{}
}

func (j *Job) finish(err error) {
	j.FinishedAt = time.Now()
	if err != nil {
		j.Status = JobStatusFailed
		j.LastError = err.Error()
		return
	}
	j.Status = JobStatusSuccess
	j.LastError = ""
}

// CanRetry reports whether a failed job has attempts left
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.Attempt < j.MaxAttempts
}

// Duration is the run time of the last attempt
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// JobExecutor runs jobs of one kind. ctx carries the job timeout.
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}
