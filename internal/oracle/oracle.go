// Package oracle defines the contracts of the three external computations
// an ensemble run depends on: the forecast model, the matrix decomposition
// and the convergence test. Reference implementations live in
// reference.go.
package oracle

import (
	"context"

	"github.com/dusk-indust/esse/internal/ucm"
)

// Vector is a forecast of fixed length (the configured data dimensions).
type Vector []float64

// RankPair is the (E, II) signal produced by a decomposition. The zero
// value stands for "no decomposition yet".
type RankPair struct {
	E  float64 `json:"e"`
	II float64 `json:"ii"`
}

// IsZero reports whether r is the zero RankPair.
func (r RankPair) IsZero() bool { return r == RankPair{} }

// Member is one perturbed realization of the forecast model.
type Member struct {
	InitialConditions float64
	Forecast          Vector
}

// Forecaster runs the forecast model.
type Forecaster interface {
	// Central returns the unperturbed forecast for conditions.
	Central(ctx context.Context, conditions float64) (Vector, error)

	// Perturb returns the forecast of one perturbed realization.
	Perturb(ctx context.Context, conditions float64) (Vector, error)
}

// Decomposer reduces a covariance matrix to a RankPair.
type Decomposer interface {
	Decompose(ctx context.Context, m ucm.MatrixView) (RankPair, error)
}

// ConvergenceTester decides convergence from two consecutive rank pairs.
type ConvergenceTester interface {
	Converged(ctx context.Context, prev, next RankPair) (bool, error)
}

// DecomposeFunc adapts a function to Decomposer.
type DecomposeFunc func(ctx context.Context, m ucm.MatrixView) (RankPair, error)

// Decompose calls f.
func (f DecomposeFunc) Decompose(ctx context.Context, m ucm.MatrixView) (RankPair, error) {
	return f(ctx, m)
}

// ConvergenceFunc adapts a function to ConvergenceTester.
type ConvergenceFunc func(ctx context.Context, prev, next RankPair) (bool, error)

// Converged calls f.
func (f ConvergenceFunc) Converged(ctx context.Context, prev, next RankPair) (bool, error) {
	return f(ctx, prev, next)
}
