package telemetry

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for env, want := range cases {
		t.Setenv("LOG_LEVEL", env)
		assert.Equal(t, want, LogLevel(), "LOG_LEVEL=%q", env)
	}
}

func TestSetupLogger_JSONWithRunID(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "INFO")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := WithRunID(SetupLogger(&buf), "run-1")
	logger.Info("run finished", "outcome", "converged")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"outcome":"converged"`)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.MembersFolded.Add(3)
	m.ObserveDecomposition(20 * time.Millisecond)
	m.ObserveDecomposition(10 * time.Millisecond)
	m.RecordRun("serial", "converged")
	m.EnsembleSize.Set(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.MembersFolded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decompositions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("serial", "converged")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.EnsembleSize))

	count, err := testutil.GatherAndCount(reg, "esse_decomposition_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
