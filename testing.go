package slr

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecordingClock is a Clock that never blocks: every Sleep returns at once
// (or with the context error) and the requested duration is recorded.
type RecordingClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *RecordingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns the recorded waits in call order.
func (c *RecordingClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// NewForTesting creates an Extractor around inv with a RecordingClock, so
// backoff and inter-unit delays take no wall time.
func NewForTesting(inv Invoker, opts ...Option) (*Extractor, *RecordingClock) {
	clock := &RecordingClock{}
	base := []Option{WithClock(clock), WithLogger(slog.Default())}
	return NewWithInvoker(inv, append(base, opts...)...), clock
}
