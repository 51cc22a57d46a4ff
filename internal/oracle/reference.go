package oracle

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/dusk-indust/esse/internal/ucm"
)

// referenceBaseline is the central forecast for unit initial conditions,
// repeated for dimensions beyond four.
var referenceBaseline = [...]float64{0, 1, 4, 11}

// Compile-time interface checks.
var (
	_ Forecaster        = (*ReferenceForecast)(nil)
	_ Decomposer        = ReferenceDecomposition{}
	_ ConvergenceTester = ReferenceConvergence{}
)

// ReferenceForecast is a stand-in forecast model: a fixed baseline scaled
// by the initial conditions, with seeded Gaussian noise for members.
type ReferenceForecast struct {
	dims  int
	scale float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewReferenceForecast returns a model producing dims-length vectors whose
// perturbations have standard deviation scale.
func NewReferenceForecast(dims int, scale float64, seed uint64) *ReferenceForecast {
	return &ReferenceForecast{
		dims:  dims,
		scale: scale,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Central returns conditions times the baseline.
func (f *ReferenceForecast) Central(ctx context.Context, conditions float64) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(Vector, f.dims)
	for d := range out {
		out[d] = conditions * referenceBaseline[d%len(referenceBaseline)]
	}
	return out, nil
}

// Perturb returns the central forecast plus independent Gaussian noise.
func (f *ReferenceForecast) Perturb(ctx context.Context, conditions float64) (Vector, error) {
	out, err := f.Central(ctx, conditions)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	for d := range out {
		out[d] += f.rng.NormFloat64() * f.scale
	}
	f.mu.Unlock()
	return out, nil
}

// ReferenceDecomposition summarizes a matrix without a full SVD: E is the
// mean member variance and II the share of the largest variance in the
// trace.
type ReferenceDecomposition struct{}

// Decompose implements Decomposer.
func (ReferenceDecomposition) Decompose(ctx context.Context, m ucm.MatrixView) (RankPair, error) {
	if err := ctx.Err(); err != nil {
		return RankPair{}, err
	}
	if m.Size() == 0 {
		return RankPair{}, ErrEmptyMatrix
	}
	trace := m.Trace()
	var largest float64
	for _, v := range m.Diagonal() {
		largest = math.Max(largest, v)
	}
	rp := RankPair{E: trace / float64(m.Size())}
	if trace > 0 {
		rp.II = largest / trace
	}
	return rp, nil
}

// ReferenceConvergence reports convergence once E changes by at most
// Tolerance relative to the previous value.
type ReferenceConvergence struct {
	Tolerance float64
}

// Converged implements ConvergenceTester. A zero or negative previous E
// never converges.
func (c ReferenceConvergence) Converged(_ context.Context, prev, next RankPair) (bool, error) {
	if prev.E <= 0 {
		return false, nil
	}
	return math.Abs(next.E-prev.E)/prev.E <= c.Tolerance, nil
}
