package cache

import (
	"context"
	"sync"
	"time"

	"github.com/optica/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// pendingResult marks a reserved key whose request has not completed
const pendingResult = ""

type idempotencyEntry struct {
	result    string
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps Idempotency-Key reservations in process.
// It only deduplicates requests reaching the same instance; multi-instance
// deployments use the Redis store.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	now     func() time.Time

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewInMemoryIdempotencyStore starts a store that sweeps expired keys every
// five minutes until Close.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(time.Now, defaultSweepInterval)
}

func newInMemoryIdempotencyStore(now func() time.Time, sweepEvery time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     now,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

// Reserve claims key for ttl unless a live reservation or result holds it
func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, live := s.liveLocked(key); live {
		return false, nil
	}
	s.entries[key] = idempotencyEntry{result: pendingResult, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Complete replaces the reservation of key with the id of the created invoice
// or payment
func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key, result string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{result: result, expiresAt: s.now().Add(ttl)}
	return nil
}

// Lookup returns the result stored for key. A key still in flight is found
// with an empty result.
func (s *InMemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, live := s.liveLocked(key)
	return e.result, live, nil
}

// Release drops key so a failed request can be retried with it
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Close stops the sweeper. It may be called more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.stopped
	})
	return nil
}

// Len reports the number of entries, expired ones included until swept
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// liveLocked returns the unexpired entry of key. s.mu must be held.
func (s *InMemoryIdempotencyStore) liveLocked(key string) (idempotencyEntry, bool) {
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return idempotencyEntry{}, false
	}
	return e, true
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer close(s.stopped)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
