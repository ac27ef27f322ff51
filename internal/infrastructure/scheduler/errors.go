package scheduler

import "errors"

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	ErrInvalidConfig       = errors.New("invalid scheduler configuration")

	// ErrJobPending is returned by Submit while a job of the same kind is
	// queued, running or waiting to retry
	ErrJobPending = errors.New("job of this kind already pending")

	// ErrRepairIncomplete fails a repair run that left receipts missing
	ErrRepairIncomplete = errors.New("receipt repair incomplete")
)
