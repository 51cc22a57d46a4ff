package ucm

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCentral = []float64{0, 1, 4, 11}

// deviate returns the central forecast shifted by d in every dimension.
func deviate(d float64) []float64 {
	out := make([]float64, len(testCentral))
	for i, c := range testCentral {
		out[i] = c + d
	}
	return out
}

func TestAccumulator_FirstAppend_IsOwnVariance(t *testing.T) {
	acc := NewAccumulator(testCentral, Options{})

	row, err := acc.Append([]float64{1, 1, 4, 11})
	require.NoError(t, err)
	assert.Equal(t, 0, row)

	m := acc.Snapshot()
	require.Equal(t, 1, m.Size())
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestAccumulator_GrowsSymmetric(t *testing.T) {
	acc := NewAccumulator(testCentral, Options{})

	// Per-dimension deviation d gives variance 4*d^2.
	devs := []float64{1, 2, 0.5, 3}
	for i, d := range devs {
		row, err := acc.Append(deviate(d))
		require.NoError(t, err)
		assert.Equal(t, i, row)
		assert.Equal(t, i+1, acc.Size(), "matrix grows by exactly one row per append")
	}

	m := acc.Snapshot()
	require.Equal(t, len(devs), m.Size())
	assert.True(t, m.IsSymmetric(0))

	for i, di := range devs {
		assert.InDelta(t, 4*di*di, m.At(i, i), 1e-12)
		for j, dj := range devs {
			if i == j {
				continue
			}
			want := math.Sqrt(4*di*di) * math.Sqrt(4*dj*dj)
			assert.InDelta(t, want, m.At(i, j), 1e-12, "cov(%d,%d)", i, j)
		}
	}
}

func TestAccumulator_SnapshotIdempotentAndIsolated(t *testing.T) {
	acc := NewAccumulator(testCentral, Options{})
	_, err := acc.Append(deviate(1))
	require.NoError(t, err)
	_, err = acc.Append(deviate(2))
	require.NoError(t, err)

	first := acc.Snapshot()
	second := acc.Snapshot()
	assert.True(t, first.Equal(second), "snapshots without an intervening append must match")

	_, err = acc.Append(deviate(3))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Size(), "earlier snapshots do not see later appends")
	assert.Equal(t, 3, acc.Snapshot().Size())
}

func TestAccumulator_BoundsError(t *testing.T) {
	acc := NewAccumulator(testCentral, Options{MaxSize: 2})
	_, err := acc.Append(deviate(1))
	require.NoError(t, err)
	_, err = acc.Append(deviate(1))
	require.NoError(t, err)

	_, err = acc.Append(deviate(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBounds)

	var be *BoundsError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Max)
	assert.Equal(t, 2, acc.Size(), "a rejected append leaves the matrix untouched")
}

func TestAccumulator_DimensionMismatch(t *testing.T) {
	acc := NewAccumulator(testCentral, Options{})
	_, err := acc.Append([]float64{1, 2})
	assert.ErrorIs(t, err, ErrDimension)
	assert.Equal(t, 0, acc.Size())
}

func TestAccumulator_PublishAlternatesBuffers(t *testing.T) {
	store := NewMemStore()
	names := DefaultNames()
	acc := NewAccumulator(testCentral, Options{Store: store, Names: names})
	ctx := context.Background()

	_, ok := acc.Stable()
	assert.False(t, ok, "nothing is stable before the first publish")

	_, err := acc.Append(deviate(1))
	require.NoError(t, err)
	view, err := acc.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Size())
	assert.Equal(t, 1, store.Writes(names.Primary), "row 0 goes to the primary buffer")
	assert.Equal(t, 0, store.Writes(names.Alternate))

	_, err = acc.Append(deviate(2))
	require.NoError(t, err)
	view, err = acc.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Size())
	assert.Equal(t, 1, store.Writes(names.Alternate), "row 1 goes to the alternate buffer")
	assert.Equal(t, 2, store.Writes(names.Stable), "every swap rewrites the stable slot")

	stable, err := Load(ctx, store, names.Stable)
	require.NoError(t, err)
	assert.True(t, stable.Equal(acc.Snapshot()))

	primary, err := Load(ctx, store, names.Primary)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.Size())

	got, ok := acc.Stable()
	require.True(t, ok)
	assert.True(t, got.Equal(stable))
}

func TestAccumulator_PublishEmptyIsNoop(t *testing.T) {
	store := NewMemStore()
	acc := NewAccumulator(testCentral, Options{Store: store})

	view, err := acc.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.Size())
	assert.Equal(t, 0, store.Writes("svd"))
}

func TestAccumulator_ConcurrentAppendPublish(t *testing.T) {
	store := NewMemStore()
	names := DefaultNames()
	acc := NewAccumulator(testCentral, Options{Store: store, Names: names})
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := acc.Append(deviate(float64(w + 1))); err != nil {
					errs <- err
					return
				}
				view, err := acc.Publish(ctx)
				if err != nil {
					errs <- err
					return
				}
				if !view.IsSymmetric(0) {
					errs <- errors.New("published a torn matrix")
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total := workers * perWorker
	stable, ok := acc.Stable()
	require.True(t, ok)
	assert.Equal(t, total, stable.Size())

	persisted, err := Load(ctx, store, names.Stable)
	require.NoError(t, err)
	assert.Equal(t, total, persisted.Size())
	assert.True(t, persisted.IsSymmetric(0))

	// The last row index is odd, so the full matrix sits in the alternate
	// buffer. The primary buffer only ever holds odd-sized matrices.
	alt, err := Load(ctx, store, names.Alternate)
	require.NoError(t, err)
	assert.Equal(t, total, alt.Size())
	if primary, err := Load(ctx, store, names.Primary); err == nil {
		assert.Equal(t, 1, primary.Size()%2)
		assert.True(t, primary.IsSymmetric(0))
	} else {
		assert.ErrorIs(t, err, ErrNotFound)
	}
}
