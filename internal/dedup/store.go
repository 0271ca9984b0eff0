package dedup

import (
	"context"
	"time"
)

// Store is the at-most-once-per-window primitive. AllowOnce must be atomic
// across concurrent callers of the same key: exactly one caller observes true
// per window, everyone else false until the window expires.
type Store interface {
	// AllowOnce claims key for ttl. It returns true when the caller won the
	// claim (no live record existed) and false when the window is already
	// held.
	AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Sweep removes expired records. Best effort; backends that expire keys
	// natively return nil without work.
	Sweep(ctx context.Context) error

	Close() error
}
