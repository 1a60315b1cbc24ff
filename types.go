package slr

import (
	"context"
	"log/slog"
	"time"
)

// Mode selects how raw input is split into work units.
type Mode string

const (
	ModeText Mode = "text"
	ModeFile Mode = "file"
)

// Defaults applied by DefaultOptions.
const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultBatchSize      = 10
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 2000 * time.Millisecond
	DefaultUnitDelay      = 2000 * time.Millisecond
	DefaultTemperature    = float32(0.1)
	DefaultHeaderToken    = "study id"
)

// Invoker is the RPC boundary to the generative model. It allows mocking,
// and lets callers plug in any client that honours the Request contract.
type Invoker interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (string, error)

func (f InvokerFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Request is one model call: content parts, the caller's instruction as an
// out-of-band system directive, and the generation temperature.
type Request struct {
	Model             string
	Parts             []*Part
	SystemInstruction string
	Temperature       float32
}

// Clock abstracts the timed waits of a run so tests can observe them.
type Clock interface {
	// Sleep blocks for d or until ctx is done, whichever happens first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

// Observer receives a consistent snapshot after every state change of a run.
// It is called synchronously from the run loop and must not block for long.
type Observer func(Snapshot)

// Options configures an Extractor.
type Options struct {
	Model          string
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration // backoff is 2^attempt * RetryBaseDelay
	UnitDelay      time.Duration // fixed wait between successive units
	Temperature    float32
	HeaderToken    string // lines containing it (case-insensitive) are dropped from fragments
	Clock          Clock
	Prompts        PromptProvider
	Observers      []Observer
	Logger         *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options every Extractor starts from.
func DefaultOptions() Options {
	return Options{
		Model:          DefaultModel,
		BatchSize:      DefaultBatchSize,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		UnitDelay:      DefaultUnitDelay,
		Temperature:    DefaultTemperature,
		HeaderToken:    DefaultHeaderToken,
		Clock:          realClock{},
	}
}

func WithModel(name string) Option {
	return func(o *Options) { o.Model = name }
}

func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithRetry sets the attempt budget and the base of the exponential backoff.
func WithRetry(maxAttempts int, base time.Duration) Option {
	return func(o *Options) {
		o.MaxAttempts = maxAttempts
		o.RetryBaseDelay = base
	}
}

func WithUnitDelay(d time.Duration) Option {
	return func(o *Options) { o.UnitDelay = d }
}

func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = t }
}

func WithHeaderToken(token string) Option {
	return func(o *Options) { o.HeaderToken = token }
}

func WithClock(c Clock) Option {
	return func(o *Options) { o.Clock = c }
}

func WithPrompts(p PromptProvider) Option {
	return func(o *Options) { o.Prompts = p }
}

// WithObserver registers a callback for run snapshots. May be given more than once.
func WithObserver(fn Observer) Option {
	return func(o *Options) { o.Observers = append(o.Observers, fn) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
