package slr

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Runner schedules independent local tasks, such as reading input files.
// Model calls never go through a Runner: they are strictly sequential.
type Runner interface {
	// Go runs fn with a context that is cancelled once any task fails.
	Go(fn func(ctx context.Context) error)
	// Wait blocks until all tasks return and reports the first error.
	Wait() error
}

// DefaultRunner returns a Runner bounded by the number of CPUs.
func DefaultRunner(ctx context.Context) Runner {
	return NewLimitedRunner(ctx, runtime.NumCPU())
}

// NewLimitedRunner creates a runner with bounded concurrency.
func NewLimitedRunner(ctx context.Context, maxConcurrency int) Runner {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrency)
	return &errGroupRunner{ctx: ctx, eg: eg}
}

// errGroupRunner is the default implementation backed by errgroup.Group.
type errGroupRunner struct {
	ctx context.Context // derived ctx shared by all tasks
	eg  *errgroup.Group
}

func (r *errGroupRunner) Go(fn func(ctx context.Context) error) {
	r.eg.Go(func() error {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		return fn(r.ctx)
	})
}

func (r *errGroupRunner) Wait() error { return r.eg.Wait() }
