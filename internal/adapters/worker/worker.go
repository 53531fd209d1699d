// Package worker runs bounded fan-out work for digest builds.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	defaultPoolName         = "fanout"
)

// Pool runs indexed tasks with a fixed concurrency limit.
// A Pool holds no per-call state and is safe for concurrent use.
type Pool struct {
	name string
	size int

	logger logger.Logger
}

// NewPool creates a pool running at most size tasks at once.
// A size below one defaults to a multiple of the CPU count.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		name: defaultPoolName,
		size: size,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}

	metrics.UpdateFanoutWorkers(p.name, p.size)
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Name returns the pool name used in metrics.
func (p *Pool) Name() string { return p.name }

// Each calls fn for every index in [0, n) with at most Size calls in flight.
// The first error cancels the context handed to the remaining calls and is
// returned once every started call has finished. No new calls are started
// after ctx is done.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			defer func() {
				metrics.RecordFanoutTaskLatency(p.name, float64(time.Since(start).Milliseconds()))
			}()
			if err := fn(gctx, i); err != nil {
				return fmt.Errorf("%s task %d: %w", p.name, i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Debug(ctx, "fan-out stopped early", logger.Int("tasks", n), logger.Error(err))
		return err
	}
	return ctx.Err()
}
