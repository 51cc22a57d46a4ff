package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dusk-indust/esse/internal/clock"
	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/oracle"
	"github.com/dusk-indust/esse/internal/telemetry"
	"github.com/dusk-indust/esse/internal/ucm"
)

// Strategy produces ensemble members until the run state carries a stop
// reason. Execute returns nil once a reason is declared and an error when
// an oracle or the store fails.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, c *Coordinator) error
}

// Oracles bundles the three external computations of a run.
type Oracles struct {
	Forecast    oracle.Forecaster
	Decompose   oracle.Decomposer
	Convergence oracle.ConvergenceTester
}

// Options configures a Coordinator. Only Config and Oracles are required.
type Options struct {
	Config  config.Config
	Oracles Oracles

	Clock   clock.Clock
	Store   ucm.Store
	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// OnProgress receives unit events. It is called from worker
	// goroutines and must not block.
	OnProgress func(ProgressEvent)
}

// Coordinator owns the run state and the stop predicate shared by all
// strategies.
type Coordinator struct {
	cfg        config.Config
	oracles    Oracles
	clock      clock.Clock
	store      ucm.Store
	names      ucm.Names
	metrics    *telemetry.Metrics
	baseLog    *slog.Logger
	logger     *slog.Logger
	onProgress func(ProgressEvent)

	runID      string
	conditions float64
	central    oracle.Vector
	start      time.Time
	budget     time.Duration
	state      *RunState

	current atomic.Pointer[ucm.Accumulator]
}

// NewCoordinator validates opts and fills in defaults: the real clock, an
// in-memory store, metrics on a private registry and slog.Default().
func NewCoordinator(opts Options) (*Coordinator, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Oracles.Forecast == nil || opts.Oracles.Decompose == nil || opts.Oracles.Convergence == nil {
		return nil, errors.New("ensemble: forecast, decomposition and convergence oracles are required")
	}
	c := &Coordinator{
		cfg:        opts.Config,
		oracles:    opts.Oracles,
		clock:      opts.Clock,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
		names: ucm.Names{
			Primary:   opts.Config.Store.Buffers.Primary,
			Alternate: opts.Config.Store.Buffers.Alternate,
			Stable:    opts.Config.Store.Buffers.Stable,
		},
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.store == nil {
		c.store = ucm.NewMemStore()
	}
	if c.metrics == nil {
		c.metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.baseLog = c.logger
	if c.names == (ucm.Names{}) {
		c.names = ucm.DefaultNames()
	}
	return c, nil
}

// Initialize computes the central forecast, clears the persisted slots and
// starts the clock. The deadline is measured from this call.
func (c *Coordinator) Initialize(ctx context.Context, conditions float64) error {
	central, err := c.oracles.Forecast.Central(ctx, conditions)
	if err != nil {
		return oracle.Wrap(oracle.NameForecast, err)
	}
	if len(central) != c.cfg.DataDimensions {
		return &oracle.Error{
			Oracle: oracle.NameForecast,
			Err:    fmt.Errorf("%w: central forecast has %d values, want %d", oracle.ErrDimension, len(central), c.cfg.DataDimensions),
		}
	}
	if err := ucm.Clear(ctx, c.store, c.names); err != nil {
		return fmt.Errorf("ensemble: clear buffers: %w", err)
	}

	c.runID = uuid.NewString()
	c.logger = telemetry.WithRunID(c.baseLog, c.runID)
	c.conditions = conditions
	c.central = central
	c.start = c.clock.Now()
	c.budget = c.cfg.MaxExecutionTime()
	c.state = newRunState(c.cfg.InitialEnsembleSize, c.cfg.MaxEnsembleSize)
	c.current.Store(nil)

	c.logger.Debug("ensemble initialized",
		"initial_size", c.cfg.InitialEnsembleSize,
		"max_size", c.cfg.MaxEnsembleSize,
		"budget", c.budget,
	)
	return nil
}

// RunID returns the identifier assigned by Initialize.
func (c *Coordinator) RunID() string { return c.runID }

// State returns the run state, or nil before Initialize.
func (c *Coordinator) State() *RunState { return c.state }

// Central returns a copy of the central forecast.
func (c *Coordinator) Central() oracle.Vector {
	out := make(oracle.Vector, len(c.central))
	copy(out, c.central)
	return out
}

// ShouldStop is the single stop predicate: it reports convergence of next
// against prev, an expired deadline or an ensemble of n at the cap, in that
// order of precedence. It does not change the run state.
func (c *Coordinator) ShouldStop(ctx context.Context, n int, prev, next oracle.RankPair) (StopReason, error) {
	converged, err := c.oracles.Convergence.Converged(ctx, prev, next)
	if err != nil {
		return StopNone, oracle.Wrap(oracle.NameConvergence, err)
	}
	switch {
	case converged:
		return StopConverged, nil
	case c.deadlineReached():
		return StopDeadlineExceeded, nil
	case n >= c.cfg.MaxEnsembleSize:
		return StopSizeCapped, nil
	}
	return StopNone, nil
}

// deadlineReached reports whether the execution budget is spent. A zero
// budget is spent immediately.
func (c *Coordinator) deadlineReached() bool {
	return c.clock.Now().Sub(c.start) >= c.budget
}

// Run executes s and reports the outcome. A run whose deadline has passed
// before s starts reports StopDeadlineExceeded without producing members.
func (c *Coordinator) Run(ctx context.Context, s Strategy) (*Report, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	if c.state.Reason() != StopNone || c.state.Cancelled() {
		return nil, ErrAlreadyRun
	}
	logger := c.logger.With("strategy", s.Name())
	logger.Info("run started", "initial_size", c.cfg.InitialEnsembleSize, "max_size", c.cfg.MaxEnsembleSize)

	if c.deadlineReached() {
		c.state.Declare(StopDeadlineExceeded)
	} else if err := s.Execute(ctx, c); err != nil {
		c.metrics.RecordRun(s.Name(), "failed")
		logger.Error("run failed", "error", err)
		return nil, fmt.Errorf("ensemble: %s run: %w", s.Name(), err)
	}

	report := c.report(s.Name())
	if report.Outcome == StopNone {
		c.metrics.RecordRun(s.Name(), "failed")
		return nil, ErrNoOutcome
	}
	c.metrics.RecordRun(s.Name(), report.Outcome.Label())
	logger.Info("run finished",
		"outcome", report.Outcome.Label(),
		"ensemble_size", report.EnsembleSize,
		"members", report.Members,
		"iterations", report.Iterations,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (c *Coordinator) report(strategy string) *Report {
	v := c.state.view()
	r := &Report{
		RunID:              c.runID,
		Strategy:           strategy,
		Outcome:            v.reason,
		EnsembleSize:       v.n,
		Iterations:         v.iterations,
		Dispatched:         v.dispatched,
		Completed:          v.completed,
		DispatchedAtCancel: v.dispatchedAtCancel,
		Rank:               v.latest,
		StartedAt:          c.start,
		Elapsed:            c.clock.Now().Sub(c.start),
	}
	if acc := c.current.Load(); acc != nil {
		r.Members = acc.Size()
	}
	return r
}

// Accumulator returns the accumulator of the latest iteration, or nil.
func (c *Coordinator) Accumulator() *ucm.Accumulator { return c.current.Load() }

// newAccumulator starts an empty matrix bounded by the size cap and makes
// it the current one.
func (c *Coordinator) newAccumulator() *ucm.Accumulator {
	acc := ucm.NewAccumulator(c.central, ucm.Options{
		MaxSize: c.cfg.MaxEnsembleSize,
		Store:   c.store,
		Names:   c.names,
	})
	c.current.Store(acc)
	return acc
}

// member produces one perturbed forecast.
func (c *Coordinator) member(ctx context.Context) (oracle.Member, error) {
	v, err := c.oracles.Forecast.Perturb(ctx, c.conditions)
	if err != nil {
		return oracle.Member{}, oracle.Wrap(oracle.NameForecast, err)
	}
	if len(v) != len(c.central) {
		return oracle.Member{}, &oracle.Error{
			Oracle: oracle.NameForecast,
			Err:    fmt.Errorf("%w: member has %d values, want %d", oracle.ErrDimension, len(v), len(c.central)),
		}
	}
	return oracle.Member{InitialConditions: c.conditions, Forecast: v}, nil
}

// fold appends m to acc.
func (c *Coordinator) fold(acc *ucm.Accumulator, m oracle.Member) error {
	row, err := acc.Append(m.Forecast)
	if err != nil {
		return err
	}
	c.metrics.MembersFolded.Inc()
	c.metrics.EnsembleSize.Set(float64(row + 1))
	return nil
}

// decompose runs the decomposition oracle on a stable view.
func (c *Coordinator) decompose(ctx context.Context, m ucm.MatrixView) (oracle.RankPair, error) {
	began := time.Now()
	rp, err := c.oracles.Decompose.Decompose(ctx, m)
	if err != nil {
		return oracle.RankPair{}, oracle.Wrap(oracle.NameDecomposition, err)
	}
	c.metrics.ObserveDecomposition(time.Since(began))
	return rp, nil
}

func (c *Coordinator) emit(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}
