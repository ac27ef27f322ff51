package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testIdempotencyStore exercises the behaviour every IdempotencyStore shares
func testIdempotencyStore(t *testing.T, store shared.IdempotencyStore) {
	ctx := context.Background()

	t.Run("reserve claims a free key once", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lookup reports in-flight keys with an empty result", func(t *testing.T) {
		result, found, err := store.Lookup(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, result)
	})

	t.Run("complete stores the result", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "key-1", "42", time.Hour))

		result, found, err := store.Lookup(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "42", result)

		ok, err := store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown keys are not found", func(t *testing.T) {
		_, found, err := store.Lookup(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("release frees the key", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, store.Release(ctx, "key-2"))
		_, found, err := store.Lookup(ctx, "key-2")
		require.NoError(t, err)
		assert.False(t, found)

		ok, err = store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("concurrent reservations have one winner", func(t *testing.T) {
		const n = 50
		results := make(chan bool, n)
		for i := 0; i < n; i++ {
			go func() {
				ok, err := store.Reserve(ctx, "contended", time.Hour)
				results <- err == nil && ok
			}()
		}

		winners := 0
		for i := 0; i < n; i++ {
			if <-results {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	testIdempotencyStore(t, store)
}

// manualClock is a settable time source
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClockedStore(t *testing.T) (*InMemoryIdempotencyStore, *manualClock) {
	t.Helper()
	clock := &manualClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(clock.Now, time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store, clock := newClockedStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "factura-retry", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Minute)

	_, found, err := store.Lookup(ctx, "factura-retry")
	require.NoError(t, err)
	assert.False(t, found, "a reservation expires at its ttl")

	ok, err = store.Reserve(ctx, "factura-retry", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired key can be reserved again")
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, clock := newClockedStore(t)
	ctx := context.Background()

	_, _ = store.Reserve(ctx, "pending", time.Minute)
	_ = store.Complete(ctx, "done-short", "7", time.Minute)
	_ = store.Complete(ctx, "done-long", "8", time.Hour)
	require.Equal(t, 3, store.Len())

	clock.Advance(2 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	result, found, err := store.Lookup(ctx, "done-long")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "8", result)
}

func TestInMemoryIdempotencyStore_SweeperRuns(t *testing.T) {
	clock := &manualClock{t: time.Now()}
	store := newInMemoryIdempotencyStore(clock.Now, 5*time.Millisecond)
	defer store.Close()

	_ = store.Complete(context.Background(), "k", "1", time.Second)
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
