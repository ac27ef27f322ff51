package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a request key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers client request keys so a retried request maps
// back to the result of its first attempt. A key is reserved while the first
// attempt runs, then completed with a result reference, or released when the
// attempt fails so the client may retry.
type IdempotencyStore interface {
	// Reserve claims key and reports false when it is already reserved or
	// completed
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	// Lookup reports found for reserved and completed keys. result stays
	// empty until the key is completed.
	Lookup(ctx context.Context, key string) (result string, found bool, err error)
	Release(ctx context.Context, key string) error
	Close() error
}
