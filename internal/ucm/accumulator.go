package ucm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Options configures an Accumulator.
type Options struct {
	// MaxSize bounds the number of members. Zero means unbounded.
	MaxSize int

	// Store receives the buffer and stable writes. Nil keeps the stable
	// view in memory only.
	Store Store

	Names Names
}

// Accumulator folds ensemble members into a growing symmetric covariance
// matrix. All methods are safe for concurrent use.
//
// Off-diagonal entries are sqrt(var_i)*sqrt(var_j), a stand-in for the
// true cross-covariance of the two deviations. The formula is kept as-is
// until the modelling choice behind it is reviewed.
type Accumulator struct {
	central []float64
	maxSize int
	store   Store
	names   Names

	mu   sync.Mutex // guards rows and sd
	rows [][]float64
	sd   []float64 // sqrt of each diagonal entry

	buffers [2]bufferState

	swapMu sync.Mutex // serializes stable swaps
	stable atomic.Pointer[MatrixView]
}

// bufferState tracks the size last written to one write buffer. Its mutex
// makes the buffer single-writer.
type bufferState struct {
	mu   sync.Mutex
	size int
}

// NewAccumulator returns an empty accumulator measuring deviations from
// central. The central vector is copied.
func NewAccumulator(central []float64, opts Options) *Accumulator {
	c := make([]float64, len(central))
	copy(c, central)
	names := opts.Names
	if names == (Names{}) {
		names = DefaultNames()
	}
	return &Accumulator{
		central: c,
		maxSize: opts.MaxSize,
		store:   opts.Store,
		names:   names,
	}
}

// Append folds one member forecast into the matrix and returns its row
// index. It fails with a BoundsError when the accumulator is full and with
// ErrDimension when the forecast length differs from the central forecast.
func (a *Accumulator) Append(forecast []float64) (int, error) {
	if len(forecast) != len(a.central) {
		return -1, fmt.Errorf("ucm: %w: got %d values, want %d", ErrDimension, len(forecast), len(a.central))
	}
	var variance float64
	for d, c := range a.central {
		diff := c - forecast[d]
		variance += diff * diff
	}
	sd := math.Sqrt(variance)

	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.rows)
	if a.maxSize > 0 && n >= a.maxSize {
		return -1, &BoundsError{Size: n, Max: a.maxSize}
	}
	if n == 0 {
		a.rows = [][]float64{{variance}}
		a.sd = []float64{sd}
		return 0, nil
	}

	row := make([]float64, n+1)
	for i := 0; i < n; i++ {
		cov := a.sd[i] * sd
		row[i] = cov
		a.rows[i] = append(a.rows[i], cov)
	}
	row[n] = variance
	a.rows = append(a.rows, row)
	a.sd = append(a.sd, sd)
	return n, nil
}

// Size returns the number of folded members.
func (a *Accumulator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Snapshot copies the live matrix.
func (a *Accumulator) Snapshot() MatrixView {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.rows)
	data := make([]float64, 0, n*n)
	for _, r := range a.rows {
		data = append(data, r...)
	}
	return MatrixView{n: n, data: data}
}

// Publish persists the current snapshot to the write buffer selected by
// the parity of its last row, then swaps it into the stable slot unless a
// larger matrix is already there. It returns the stable view.
func (a *Accumulator) Publish(ctx context.Context) (MatrixView, error) {
	view := a.Snapshot()
	if view.Size() == 0 {
		return view, nil
	}

	var data []byte
	if a.store != nil {
		data = Encode(view)
		if err := a.writeBuffer(ctx, view.Size(), data); err != nil {
			return MatrixView{}, err
		}
	}
	return a.swap(ctx, view, data)
}

// Stable returns the last view swapped into the stable slot.
func (a *Accumulator) Stable() (MatrixView, bool) {
	v := a.stable.Load()
	if v == nil {
		return MatrixView{}, false
	}
	return *v, true
}

func (a *Accumulator) writeBuffer(ctx context.Context, size int, data []byte) error {
	parity := (size - 1) % 2
	b := &a.buffers[parity]

	b.mu.Lock()
	defer b.mu.Unlock()
	if size <= b.size {
		return nil
	}
	if err := a.store.Write(ctx, a.names.Buffer(parity), data); err != nil {
		return err
	}
	b.size = size
	return nil
}

func (a *Accumulator) swap(ctx context.Context, view MatrixView, data []byte) (MatrixView, error) {
	a.swapMu.Lock()
	defer a.swapMu.Unlock()

	if cur := a.stable.Load(); cur != nil && cur.Size() >= view.Size() {
		return *cur, nil
	}
	if a.store != nil {
		if err := a.store.Write(ctx, a.names.Stable, data); err != nil {
			return MatrixView{}, err
		}
	}
	a.stable.Store(&view)
	return view, nil
}
