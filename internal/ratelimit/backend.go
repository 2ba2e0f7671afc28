package ratelimit

import (
	"context"
	"time"
)

// CounterBackend is one counting strategy. Incr atomically increments
// the counter under key, starting a new window of the given duration if
// this is the first hit, and reports the running count plus the time
// left before the window resets.
//
// Every call charges the counter; there is no read-only peek. Requests
// are charged on attempt, not completion, so cancelling a request never
// refunds its increment.
type CounterBackend interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}
