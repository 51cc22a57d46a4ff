package ensemble

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/ucm"
)

// Concurrent grows one shared matrix from a fixed pool of workers. Each
// worker claims units from the run state until a stop reason is declared;
// units already claimed always run to completion.
type Concurrent struct {
	// Workers overrides the configured pool size when positive.
	Workers int
}

// Name implements Strategy.
func (Concurrent) Name() string { return config.StrategyConcurrent }

// Execute implements Strategy. It uses errgroup.WithContext so that the
// first failed unit stops all further claims; in-flight units drain before
// Execute returns that error.
func (s Concurrent) Execute(ctx context.Context, c *Coordinator) error {
	workers := s.Workers
	if workers < 1 {
		workers = c.cfg.Workers
	}
	acc := c.newAccumulator()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return s.work(gctx, c, acc)
		})
	}
	return g.Wait()
}

func (s Concurrent) work(ctx context.Context, c *Coordinator, acc *ucm.Accumulator) error {
	for {
		if err := ctx.Err(); err != nil {
			c.state.abort()
			return err
		}
		if c.deadlineReached() {
			c.state.Declare(StopDeadlineExceeded)
			return nil
		}
		unit, ok := c.state.claim()
		if !ok {
			return nil
		}
		if err := s.runUnit(ctx, c, acc, unit); err != nil {
			c.state.abort()
			return err // triggers context cancellation for other workers
		}
	}
}

// runUnit produces one member, folds and publishes it, decomposes the
// stable view and applies the stop predicate.
func (s Concurrent) runUnit(ctx context.Context, c *Coordinator, acc *ucm.Accumulator, unit int) error {
	ev := ProgressEvent{Strategy: s.Name(), Index: unit, Size: unit + 1}
	c.emit(withStatus(ev, ProgressWorking, ""))
	fail := func(err error) error {
		c.emit(withStatus(ev, ProgressFailed, err.Error()))
		return err
	}

	prev := c.state.LatestRank()
	m, err := c.member(ctx)
	if err != nil {
		return fail(err)
	}
	if err := c.fold(acc, m); err != nil {
		if errors.Is(err, ucm.ErrBounds) {
			c.state.Declare(StopSizeCapped)
			c.state.complete(1)
			c.emit(withStatus(ev, ProgressComplete, "size cap reached"))
			return nil
		}
		return fail(err)
	}

	stable, err := acc.Publish(context.WithoutCancel(ctx))
	if err != nil {
		return fail(fmt.Errorf("publish: %w", err))
	}
	rank, err := c.decompose(ctx, stable)
	if err != nil {
		return fail(err)
	}
	c.state.RecordRank(rank)

	reason, err := c.ShouldStop(ctx, acc.Size(), prev, rank)
	if err != nil {
		return fail(err)
	}
	c.state.complete(1)
	c.emit(withStatus(ev, ProgressComplete, fmt.Sprintf("E=%g II=%g", rank.E, rank.II)))

	if reason != StopNone && c.state.Declare(reason) {
		c.logger.Debug("stop declared", "reason", reason.Label(), "unit", unit, "members", acc.Size())
	}
	return nil
}
