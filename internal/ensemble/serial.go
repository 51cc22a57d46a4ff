package ensemble

import (
	"context"
	"fmt"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/oracle"
)

// Serial rebuilds the ensemble from scratch at every size: n members, one
// publish, one decomposition per iteration, then n grows by one. It is
// deterministic given deterministic oracles.
type Serial struct{}

// Name implements Strategy.
func (Serial) Name() string { return config.StrategySerial }

// Execute implements Strategy.
func (s Serial) Execute(ctx context.Context, c *Coordinator) error {
	state := c.state
	var prev oracle.RankPair
	for iter := 0; ; iter++ {
		n := state.N()
		ev := ProgressEvent{Strategy: s.Name(), Index: iter, Size: n}
		c.emit(withStatus(ev, ProgressPending, ""))

		if err := ctx.Err(); err != nil {
			return err
		}
		if c.deadlineReached() {
			state.Declare(StopDeadlineExceeded)
			return nil
		}
		c.emit(withStatus(ev, ProgressWorking, ""))

		rank, err := s.iterate(ctx, c, n)
		if err != nil {
			c.emit(withStatus(ev, ProgressFailed, err.Error()))
			return err
		}
		state.RecordRank(rank)

		reason, err := c.ShouldStop(ctx, n, prev, rank)
		if err != nil {
			c.emit(withStatus(ev, ProgressFailed, err.Error()))
			return err
		}
		c.emit(withStatus(ev, ProgressComplete, fmt.Sprintf("E=%g II=%g", rank.E, rank.II)))
		c.logger.Debug("serial iteration", "iteration", iter+1, "n", n, "e", rank.E, "ii", rank.II)

		if reason != StopNone {
			state.Declare(reason)
			return nil
		}
		if !state.Grow() {
			state.Declare(StopSizeCapped)
			return nil
		}
		prev = rank
	}
}

// iterate builds an ensemble of n members into a fresh accumulator and
// decomposes it.
func (Serial) iterate(ctx context.Context, c *Coordinator, n int) (oracle.RankPair, error) {
	acc := c.newAccumulator()
	c.state.dispatch(n)
	for i := 0; i < n; i++ {
		m, err := c.member(ctx)
		if err != nil {
			return oracle.RankPair{}, err
		}
		if err := c.fold(acc, m); err != nil {
			return oracle.RankPair{}, err
		}
	}
	c.state.complete(n)

	stable, err := acc.Publish(ctx)
	if err != nil {
		return oracle.RankPair{}, fmt.Errorf("publish: %w", err)
	}
	return c.decompose(ctx, stable)
}

func withStatus(ev ProgressEvent, status ProgressStatus, msg string) ProgressEvent {
	ev.Status = status
	ev.Message = msg
	return ev
}
