package port

import (
	"context"
	"time"
)

// RateLimitStore persists sliding-window attempt counters. Implementations
// are injected so production can run on Redis while tests use an in-memory
// map; nothing in the service reaches for a package-level singleton.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
