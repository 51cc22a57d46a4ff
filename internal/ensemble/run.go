package ensemble

import (
	"context"
	"fmt"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/oracle"
)

// NewStrategy returns the strategy named by cfg.Strategy.
func NewStrategy(cfg config.Config) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategySerial:
		return Serial{}, nil
	case config.StrategyConcurrent:
		return Concurrent{Workers: cfg.Workers}, nil
	default:
		return nil, fmt.Errorf("ensemble: unknown strategy %q", cfg.Strategy)
	}
}

// ReferenceOracles builds the reference forecast, decomposition and
// convergence test from cfg.
func ReferenceOracles(cfg config.Config) Oracles {
	return Oracles{
		Forecast:    oracle.NewReferenceForecast(cfg.DataDimensions, cfg.PerturbationScale, cfg.Seed),
		Decompose:   oracle.ReferenceDecomposition{},
		Convergence: oracle.ReferenceConvergence{Tolerance: cfg.Tolerance},
	}
}

// RunOnce creates a coordinator from opts, initializes it with the
// configured initial conditions and runs the configured strategy.
func RunOnce(ctx context.Context, opts Options) (*Report, error) {
	c, err := NewCoordinator(opts)
	if err != nil {
		return nil, err
	}
	s, err := NewStrategy(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx, opts.Config.InitialConditions); err != nil {
		return nil, err
	}
	return c.Run(ctx, s)
}
