package ensemble

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/esse/internal/clock"
	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/oracle"
	"github.com/dusk-indust/esse/internal/telemetry"
	"github.com/dusk-indust/esse/internal/ucm"
)

// mockForecast implements oracle.Forecaster with configurable functions.
// A nil function falls back to the reference model.
type mockForecast struct {
	ref     *oracle.ReferenceForecast
	central func(ctx context.Context, conditions float64) (oracle.Vector, error)
	perturb func(ctx context.Context, conditions float64) (oracle.Vector, error)
	calls   atomic.Int64
}

func newMockForecast() *mockForecast {
	return &mockForecast{ref: oracle.NewReferenceForecast(4, 1, 1)}
}

func (m *mockForecast) Central(ctx context.Context, conditions float64) (oracle.Vector, error) {
	if m.central != nil {
		return m.central(ctx, conditions)
	}
	return m.ref.Central(ctx, conditions)
}

func (m *mockForecast) Perturb(ctx context.Context, conditions float64) (oracle.Vector, error) {
	m.calls.Add(1)
	if m.perturb != nil {
		return m.perturb(ctx, conditions)
	}
	return m.ref.Perturb(ctx, conditions)
}

// neverConverges is a convergence oracle that always answers false.
var neverConverges = oracle.ConvergenceFunc(func(context.Context, oracle.RankPair, oracle.RankPair) (bool, error) {
	return false, nil
})

// alwaysConverges is a convergence oracle that always answers true.
var alwaysConverges = oracle.ConvergenceFunc(func(context.Context, oracle.RankPair, oracle.RankPair) (bool, error) {
	return true, nil
})

var errDiskFull = errors.New("disk full")

// failingStore accepts slot clears and rejects every non-empty write.
type failingStore struct {
	*ucm.MemStore
}

func (s failingStore) Write(ctx context.Context, name string, data []byte) error {
	if len(data) > 0 {
		return &ucm.StorageError{Op: "write", Slot: name, Err: errDiskFull}
	}
	return s.MemStore.Write(ctx, name, data)
}

// progressLog collects progress events from worker goroutines.
type progressLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (p *progressLog) record(ev ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *progressLog) withStatus(status ProgressStatus) []ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range p.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig(initial, max int) config.Config {
	cfg := config.Defaults()
	cfg.InitialEnsembleSize = initial
	cfg.MaxEnsembleSize = max
	cfg.Workers = 5
	cfg.Store.Backend = config.BackendMemory
	return cfg
}

type fixture struct {
	coord    *Coordinator
	forecast *mockForecast
	store    *ucm.MemStore
	clock    *clock.FakeClock
	metrics  *telemetry.Metrics
	progress *progressLog
}

// newFixture builds an initialized coordinator. Nil oracles default to the
// reference decomposition and a convergence test that never converges.
func newFixture(t *testing.T, cfg config.Config, forecast *mockForecast, dec oracle.Decomposer, conv oracle.ConvergenceTester) *fixture {
	t.Helper()
	f := &fixture{
		forecast: forecast,
		store:    ucm.NewMemStore(),
		clock:    clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		metrics:  telemetry.NewMetrics(prometheus.NewRegistry()),
		progress: &progressLog{},
	}
	if f.forecast == nil {
		f.forecast = newMockForecast()
	}
	if dec == nil {
		dec = oracle.ReferenceDecomposition{}
	}
	if conv == nil {
		conv = neverConverges
	}
	f.coord = f.newCoordinator(t, cfg, f.store, dec, conv)
	return f
}

func (f *fixture) newCoordinator(t *testing.T, cfg config.Config, store ucm.Store, dec oracle.Decomposer, conv oracle.ConvergenceTester) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Options{
		Config: cfg,
		Oracles: Oracles{
			Forecast:    f.forecast,
			Decompose:   dec,
			Convergence: conv,
		},
		Clock:      f.clock,
		Store:      store,
		Metrics:    f.metrics,
		Logger:     telemetry.Discard(),
		OnProgress: f.progress.record,
	})
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background(), cfg.InitialConditions))
	return c
}
