package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Options controls the exponential backoff schedule.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Base is the backoff base multiplier.
	Base float64
	// Cap bounds the pre-jitter delay in seconds.
	Cap float64
	// JitterMax is the upper bound of the uniform random jitter in seconds.
	JitterMax float64
}

// DefaultOptions mirrors the schedule used for upstream data fetches:
// 1s, 2s, 4s, ... capped at 60s, with up to 0.6s of jitter.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 6,
		Base:        2.0,
		Cap:         60.0,
		JitterMax:   0.6,
	}
}

// Delay computes the pre-jitter delay for the given 1-indexed attempt:
// min(cap, base^(attempt-1)) seconds. The first retry uses exponent 0 so it
// backs off minimally.
func (o Options) Delay(attempt int) time.Duration {
	exp := attempt - 1
	if exp < 0 {
		exp = 0
	}
	seconds := math.Min(o.Cap, math.Pow(o.Base, float64(exp)))
	return time.Duration(seconds * float64(time.Second))
}

func (o Options) jitter() time.Duration {
	if o.JitterMax <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * o.JitterMax * float64(time.Second))
}

// Do invokes op until it succeeds or MaxAttempts is exhausted, sleeping
// between attempts per the backoff schedule. The last failure is returned
// untouched so callers can inspect it. Context cancellation aborts the wait
// and returns the context error.
func Do(ctx context.Context, opts Options, op func() error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		wait := opts.Delay(attempt) + opts.jitter()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
