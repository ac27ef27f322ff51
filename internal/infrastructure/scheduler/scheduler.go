// Package scheduler runs background maintenance jobs on a small worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SchedulerConfig sizes the pool. RetryAttempts is the number of re-runs
// after a failed first attempt.
type SchedulerConfig struct {
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig uses one worker since receipt rendering drives a
// single headless browser.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 1,
		QueueSize:         16,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     2,
		RetryDelay:        time.Minute,
	}
}

// Validate rejects configurations that could never run a job
func (c SchedulerConfig) Validate() error {
	switch {
	case c.MaxConcurrentJobs < 1:
		return fmt.Errorf("%w: max concurrent jobs must be at least 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue size must be at least 1", ErrInvalidConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	case c.RetryAttempts < 0 || c.RetryDelay < 0:
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs submitted jobs on a fixed pool of workers. At most one job
// per kind is queued or running through Submit.
type Scheduler struct {
	config    SchedulerConfig
	logger    *zap.Logger
	jobs      chan *Job
	executors map[JobKind]JobExecutor

	mu      sync.Mutex
	running bool
	active  map[JobKind]*Job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewScheduler validates config and returns a stopped scheduler
func NewScheduler(config SchedulerConfig, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:    config,
		logger:    logger.Named("scheduler"),
		jobs:      make(chan *Job, config.QueueSize),
		executors: make(map[JobKind]JobExecutor),
		active:    make(map[JobKind]*Job),
	}, nil
}

// Register installs the executor for kind. Call it before Start.
func (s *Scheduler) Register(kind JobKind, executor JobExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[kind] = executor
}

// Start launches the workers. They stop when ctx ends or on Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for id := range s.config.MaxConcurrentJobs {
		s.workers.Add(1)
		go s.work(id)
	}
	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Submit queues a job of kind unless one is already queued or running
func (s *Scheduler) Submit(kind JobKind) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.active[kind]; ok {
		return pending, fmt.Errorf("%w: %s", ErrJobPending, pending.ID)
	}
	job := NewJob(kind, s.config.RetryAttempts+1)
	if err := s.enqueueLocked(job); err != nil {
		return nil, err
	}
	s.active[kind] = job
	return job, nil
}

// SubmitJob queues job as is, without the one-per-kind check
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(job)
}

func (s *Scheduler) enqueueLocked(job *Job) error {
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		s.logger.Debug("Job queued", jobFields(job)...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(id int) {
	defer s.workers.Done()
	log := s.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.jobs:
			s.run(log, job)
		}
	}
}

func (s *Scheduler) run(log *zap.Logger, job *Job) {
	s.mu.Lock()
	executor, ok := s.executors[job.Kind]
	s.mu.Unlock()

	job.begin()
	if !ok {
		job.finish(fmt.Errorf("no executor for %s", job.Kind))
		log.Error("Job dropped", append(jobFields(job), zap.String("error", job.LastError))...)
		s.release(job)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.JobTimeout)
	err := executor.Execute(ctx, job)
	cancel()
	job.finish(err)

	if err == nil {
		log.Info("Job completed", append(jobFields(job), zap.Duration("duration", job.Duration()))...)
		s.release(job)
		return
	}

	log.Error("Job failed", append(jobFields(job), zap.Error(err))...)
	if !job.CanRetry() || s.ctx.Err() != nil {
		s.release(job)
		return
	}
	job.Status = JobStatusPending
	time.AfterFunc(s.config.RetryDelay, func() { s.retry(job) })
}

func (s *Scheduler) retry(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enqueueLocked(job); err != nil {
		s.logger.Warn("Retry not queued", append(jobFields(job), zap.Error(err))...)
		s.releaseLocked(job)
	}
}

func (s *Scheduler) release(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(job)
}

func (s *Scheduler) releaseLocked(job *Job) {
	if s.active[job.Kind] == job {
		delete(s.active, job.Kind)
	}
}

func jobFields(job *Job) []zap.Field {
	return []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Int("attempt", job.Attempt),
	}
}
