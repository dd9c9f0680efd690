// Package retry runs operations against flaky upstreams with exponential
// backoff. Only transient failures are retried; anything else returns
// immediately so bad symbols and auth problems fail fast.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/stockbro/stockbro/internal/observ"
)

// Transient is implemented by errors worth retrying, such as network
// timeouts and provider 5xx responses.
type Transient interface {
	Transient() bool
}

// IsTransient reports whether err (or anything it wraps) marks itself as
// retryable.
func IsTransient(err error) bool {
	var t Transient
	return errors.As(err, &t) && t.Transient()
}

// Policy describes a backoff schedule. The first attempt is free; MaxRetries
// counts additional attempts after a transient failure.
type Policy struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// NewPolicy creates a retry policy with sane floors for misconfigured input.
func NewPolicy(name string, maxRetries int, baseDelay, maxDelay time.Duration) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Policy{
		Name:       name,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		sleep:      sleepCtx,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, exhausts
// the retry budget, or ctx is cancelled. The last error is returned as-is.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			observ.IncCounter("retry_attempts_total", map[string]string{"policy": p.Name})
			if err := p.sleep(ctx, p.delayFor(attempt)); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	observ.IncCounter("retry_exhausted_total", map[string]string{"policy": p.Name})
	return lastErr
}

// delayFor computes the backoff before retry attempt k (1-based): capped
// exponential growth plus up to 50% random jitter.
func (p *Policy) delayFor(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay + p.jitter(delay/2)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
