package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTrigger submits a job of one kind on a fixed interval
type IntervalTrigger struct {
	interval   time.Duration
	kind       JobKind
	submitter  interface{ Submit(JobKind) (*Job, error) }
	logger     *zap.Logger
	runAtStart bool

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// TriggerOption configures an IntervalTrigger
type TriggerOption func(*IntervalTrigger)

// FireOnStart submits the first job right away instead of after one interval
func FireOnStart() TriggerOption {
	return func(t *IntervalTrigger) { t.runAtStart = true }
}

// NewIntervalTrigger returns a stopped trigger for kind
func NewIntervalTrigger(interval time.Duration, kind JobKind, scheduler *Scheduler, logger *zap.Logger, opts ...TriggerOption) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &IntervalTrigger{
		interval:  interval,
		kind:      kind,
		submitter: scheduler,
		logger:    logger.Named("trigger").With(zap.String("kind", string(kind))),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the trigger until ctx ends or Stop. A non-positive interval
// leaves it idle.
func (t *IntervalTrigger) Start(ctx context.Context) error {
	if t.interval <= 0 {
		t.logger.Info("Interval trigger disabled")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return nil
	}
	ctx, t.stop = context.WithCancel(ctx)
	t.done = make(chan struct{})

	go t.loop(ctx, t.done)
	t.logger.Info("Interval trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop ends the loop and waits for it until ctx ends
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if done == nil {
		return nil
	}

	stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the loop is active
func (t *IntervalTrigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

func (t *IntervalTrigger) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if t.runAtStart {
		t.Fire()
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Fire()
		}
	}
}

// Fire submits one job now. A tick landing while the previous run is still
// pending is skipped.
func (t *IntervalTrigger) Fire() {
	job, err := t.submitter.Submit(t.kind)
	switch {
	case err == nil:
		t.logger.Debug("Scheduled run submitted", zap.String("job_id", job.ID.String()))
	case errors.Is(err, ErrJobPending):
		t.logger.Debug("Previous run still pending")
	default:
		t.logger.Warn("Scheduled run skipped", zap.Error(err))
	}
}
