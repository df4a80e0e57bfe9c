package quiz

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	// MinAttempts and MaxAttempts bound the per-bucket attempt budget.
	MinAttempts = 3
	MaxAttempts = 5

	// DefaultRequestTimeout bounds one generative-source call.
	DefaultRequestTimeout = 30 * time.Second
)

// RetryPolicy is the shared attempt budget and pacing for bucket loops. One
// value is built per engine and shared by all buckets, so the rate limiter
// also caps aggregate request throughput in the parallel mode.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	limiter     *rate.Limiter
}

// NewRetryPolicy clamps maxAttempts into [MinAttempts, MaxAttempts] and
// paces generation requests at requestsPerSecond (unlimited when <= 0).
func NewRetryPolicy(maxAttempts int, requestsPerSecond float64) RetryPolicy {
	if maxAttempts < MinAttempts {
		maxAttempts = MinAttempts
	}
	if maxAttempts > MaxAttempts {
		maxAttempts = MaxAttempts
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Timeout:     DefaultRequestTimeout,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the next generation request is allowed.
func (p RetryPolicy) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
