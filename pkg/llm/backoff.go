package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-pkgz/lgr"
)

// Asker is a single-shot analysis call.
type Asker interface {
	Ask(ctx context.Context, content string) (string, error)
}

// Retrier decorates an Asker with capped exponential backoff. A failed
// attempt waits min(base*2^(attempt-1), max) plus up to 250ms of jitter
// before the next one; waits never block sibling calls.
type Retrier struct {
	next    Asker
	retries int
	base    time.Duration
	max     time.Duration
}

// NewRetrier builds a retrier; non-positive parameters fall back to
// 5 attempts, 1s base delay and a 30s cap.
func NewRetrier(next Asker, retries int, base, max time.Duration) *Retrier {
	if retries <= 0 {
		retries = 5
	}
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	return &Retrier{next: next, retries: retries, base: base, max: max}
}

// Ask retries the wrapped call until it succeeds, the attempts run out or
// the context ends.
func (r *Retrier) Ask(ctx context.Context, content string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		resp, err := r.next.Ask(ctx, content)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == r.retries {
			break
		}

		delay := r.delay(attempt)
		lgr.Printf("[DEBUG] llm attempt %d/%d failed, retrying in %s: %v", attempt, r.retries, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("llm request failed after %d attempts: %w", r.retries, lastErr)
}

// delay doubles the base per failed attempt up to the cap, then adds jitter.
func (r *Retrier) delay(attempt int) time.Duration {
	d := r.base
	for i := 1; i < attempt && d < r.max; i++ {
		d *= 2
	}
	if d > r.max {
		d = r.max
	}
	return d + rand.N(250*time.Millisecond)
}
