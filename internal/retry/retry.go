// Package retry provides a bounded exponential backoff with jitter for calls
// to external services. The policy is explicit configuration rather than a
// fixed-delay constant, and the budget is always finite: exhausting it
// surfaces the last error instead of hanging.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds a retryable call.
type Policy struct {
	Attempts int           // total tries, including the first
	BaseWait time.Duration // wait before the second try
	MaxWait  time.Duration // cap on any single wait
}

// DefaultPolicy suits short outbound HTTP calls.
var DefaultPolicy = Policy{Attempts: 3, BaseWait: 500 * time.Millisecond, MaxWait: 5 * time.Second}

// Do invokes fn until it succeeds, the attempt budget is spent, or the
// context ends. Each failed attempt waits base*2^n with up to 50% random
// jitter added.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var err error
	wait := p.BaseWait
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			jittered := wait + time.Duration(rand.Int63n(int64(wait)/2+1))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return ctx.Err()
			}
			wait *= 2
			if p.MaxWait > 0 && wait > p.MaxWait {
				wait = p.MaxWait
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
