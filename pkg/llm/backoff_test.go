package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("transient failure")

// flakyAsker fails its first fails calls, then succeeds.
type flakyAsker struct {
	calls int
	fails int
}

func (f *flakyAsker) Ask(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.fails {
		return "", errFlaky
	}
	return "ok", nil
}

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	asker := &flakyAsker{fails: 2}
	retrier := NewRetrier(asker, 5, 10*time.Millisecond, 80*time.Millisecond)

	start := time.Now()
	resp, err := retrier.Ask(context.Background(), "text")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 3, asker.calls)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "waited 10ms then 20ms before the retries")
}

func TestRetrier_FirstTrySuccess(t *testing.T) {
	asker := &flakyAsker{}
	retrier := NewRetrier(asker, 5, time.Second, 30*time.Second)

	start := time.Now()
	resp, err := retrier.Ask(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 1, asker.calls)
	assert.Less(t, time.Since(start), time.Second, "no backoff on immediate success")
}

func TestRetrier_Exhausted(t *testing.T) {
	asker := &flakyAsker{fails: 100}
	retrier := NewRetrier(asker, 3, time.Millisecond, 2*time.Millisecond)

	_, err := retrier.Ask(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, errFlaky)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, 3, asker.calls)
}

func TestRetrier_ContextEndsDuringBackoff(t *testing.T) {
	asker := &flakyAsker{fails: 100}
	retrier := NewRetrier(asker, 5, 5*time.Second, 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := retrier.Ask(ctx, "text")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, asker.calls, "no second attempt once the context is done")
}

func TestRetrier_Delay(t *testing.T) {
	retrier := NewRetrier(nil, 5, time.Second, 4*time.Second)

	tbl := []struct {
		attempt int
		min     time.Duration
	}{
		{attempt: 1, min: time.Second},
		{attempt: 2, min: 2 * time.Second},
		{attempt: 3, min: 4 * time.Second}, // hits the cap
		{attempt: 7, min: 4 * time.Second}, // stays at the cap
	}
	for _, tt := range tbl {
		d := retrier.delay(tt.attempt)
		assert.GreaterOrEqual(t, d, tt.min, "attempt %d", tt.attempt)
		assert.Less(t, d, tt.min+250*time.Millisecond, "attempt %d jitter bound", tt.attempt)
	}
}

func TestNewRetrier_Defaults(t *testing.T) {
	retrier := NewRetrier(nil, 0, 0, 0)
	assert.Equal(t, 5, retrier.retries)
	assert.Equal(t, time.Second, retrier.base)
	assert.Equal(t, 30*time.Second, retrier.max)
}
