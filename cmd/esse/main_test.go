package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is a bytes.Buffer safe for the progress printer and the
// logger to share.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, args ...string) (int, string, string, error) {
	t.Helper()
	var stdout, stderr lockedBuffer
	code, err := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String(), err
}

func TestRun_Version(t *testing.T) {
	code, out, _, err := runCLI(t, "-version")
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "dev\n", out)
}

func TestRun_SizeCap(t *testing.T) {
	code, out, _, err := runCLI(t,
		"-config-dir", t.TempDir(), "-store", "memory",
		"-initial-size", "2", "-max-size", "2",
	)
	require.NoError(t, err)
	assert.Equal(t, exitIncomplete, code)
	assert.Contains(t, out, "Failed to calculate Error Subspace. Maximum ensemble size reached.\n")
	assert.Contains(t, out, "Total execution time: ")
}

func TestRun_ZeroBudget(t *testing.T) {
	code, out, _, err := runCLI(t,
		"-config-dir", t.TempDir(), "-store", "memory",
		"-strategy", "concurrent", "-max-seconds", "0",
	)
	require.NoError(t, err)
	assert.Equal(t, exitIncomplete, code)
	assert.Contains(t, out, "Maximum execution time reached.")
}

func TestRun_Converged(t *testing.T) {
	code, out, _, err := runCLI(t,
		"-config-dir", t.TempDir(), "-store", "memory",
		"-initial-size", "3", "-max-size", "50", "-tolerance", "1e9",
	)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Error Subspace successfully calculated!")
}

func TestRun_Verbose(t *testing.T) {
	code, _, errOut, err := runCLI(t,
		"-config-dir", t.TempDir(), "-store", "memory",
		"-initial-size", "2", "-max-size", "3", "-verbose",
	)
	require.NoError(t, err)
	assert.Equal(t, exitIncomplete, code)
	assert.Contains(t, errOut, "iteration 1 (n=2)")
	assert.Contains(t, errOut, "iteration 2 (n=3)")
}

func TestRun_ConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	yml := `strategy: concurrent
workers: 2
initialEnsembleSize: 2
maxEnsembleSize: 4
store:
  backend: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "esse.yml"), []byte(yml), 0o644))

	code, out, errOut, err := runCLI(t, "-config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, exitIncomplete, code)
	assert.Contains(t, out, "Maximum ensemble size reached.")
	assert.Contains(t, errOut, "strategy=concurrent")

	_, _, errOut, err = runCLI(t, "-config-dir", dir, "-strategy", "serial")
	require.NoError(t, err)
	assert.Contains(t, errOut, "strategy=serial")
}

func TestRun_FileStoreStatusAndExport(t *testing.T) {
	cfgDir, storeDir := t.TempDir(), t.TempDir()
	base := []string{"-config-dir", cfgDir, "-store", "file", "-store-dir", storeDir}

	code, _, _, err := runCLI(t, append(base, "-initial-size", "2", "-max-size", "3")...)
	require.NoError(t, err)
	assert.Equal(t, exitIncomplete, code)

	for _, name := range []string{"ucm1", "ucm2", "svd"} {
		assert.FileExists(t, filepath.Join(storeDir, name))
	}

	code, out, _, err := runCLI(t, append(base, "status")...)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Store: file ("+storeDir+")")
	assert.Contains(t, out, "-> ucm1")
	assert.Contains(t, out, "[3x3]")

	code, out, _, err = runCLI(t, append(base, "export")...)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	var exported struct {
		Slot string      `json:"slot"`
		Size int         `json:"size"`
		Rows [][]float64 `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Equal(t, "svd", exported.Slot)
	assert.Equal(t, 3, exported.Size)
	assert.Len(t, exported.Rows, 3)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid strategy", []string{"-strategy", "quantum"}, "unknown strategy"},
		{"invalid sizes", []string{"-initial-size", "5", "-max-size", "2"}, "maxEnsembleSize"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"postgres without dsn", []string{"-store", "postgres"}, "store.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-config-dir", t.TempDir(), "-store", "memory"}, tt.args...)
			code, _, _, err := runCLI(t, args...)
			require.Error(t, err)
			assert.Equal(t, exitError, code)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_BadFlag(t *testing.T) {
	code, _, errOut, err := runCLI(t, "-no-such-flag")
	require.Error(t, err)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "flag provided but not defined")
}

func TestLoadConfig_OnlyExplicitFlags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "esse.yml"), []byte("strategy: concurrent\nworkers: 7\n"), 0o644))

	var flags cliFlags
	fs := newFlagSet(&flags, &lockedBuffer{})
	require.NoError(t, fs.Parse([]string{"-config-dir", dir, "-workers", "3"}))

	cfg, err := loadConfig(fs, &flags)
	require.NoError(t, err)
	assert.Equal(t, "concurrent", cfg.Strategy, "unset flags keep the file value")
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 100, cfg.InitialEnsembleSize, "unset in both keeps the default")
}
