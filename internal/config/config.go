package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names accepted in Config.Strategy.
const (
	StrategySerial     = "serial"
	StrategyConcurrent = "concurrent"
)

// Store backends accepted in StoreConfig.Backend.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendKuzu     = "kuzu"
)

// Config holds every tunable of an ensemble run. Values come from
// Defaults(), then esse.yml, then explicitly set CLI flags.
type Config struct {
	// InitialEnsembleSize is the ensemble size of the first serial
	// iteration and the size of the first concurrent wave.
	InitialEnsembleSize int `yaml:"initialEnsembleSize"`

	// MaxEnsembleSize caps the ensemble. Reaching it ends the run.
	MaxEnsembleSize int `yaml:"maxEnsembleSize"`

	// MaxExecutionSeconds is the wall-clock budget measured from
	// initialization. Zero means the deadline has already passed.
	MaxExecutionSeconds float64 `yaml:"maxExecutionSeconds"`

	// DataDimensions is the length of every forecast vector.
	DataDimensions int `yaml:"dataDimensions"`

	// Workers is the concurrent pool size. Ignored by the serial strategy.
	Workers int `yaml:"workers"`

	// Strategy selects "serial" or "concurrent" execution.
	Strategy string `yaml:"strategy"`

	// InitialConditions seeds the central and perturbed forecasts.
	InitialConditions float64 `yaml:"initialConditions"`

	// Seed drives the reference perturbation generator.
	Seed uint64 `yaml:"seed"`

	// PerturbationScale is the standard deviation of reference perturbations.
	PerturbationScale float64 `yaml:"perturbationScale"`

	// Tolerance is the relative change in E below which the reference
	// convergence test reports convergence.
	Tolerance float64 `yaml:"tolerance"`

	Store StoreConfig `yaml:"store"`

	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string `yaml:"metricsAddr,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// StoreConfig selects where the UCM buffers are persisted.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	// Dir is the directory for the file backend and the database path
	// for the kuzu backend.
	Dir string `yaml:"dir,omitempty"`

	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string `yaml:"dsn,omitempty"`

	Buffers BufferNames `yaml:"buffers"`
}

// BufferNames names the two alternating write buffers and the stable slot
// read by the decomposition.
type BufferNames struct {
	Primary   string `yaml:"primary"`
	Alternate string `yaml:"alternate"`
	Stable    string `yaml:"stable"`
}

// Defaults returns the configuration used when neither a file nor a flag
// sets a value.
func Defaults() Config {
	return Config{
		InitialEnsembleSize: 100,
		MaxEnsembleSize:     1_000_000,
		MaxExecutionSeconds: 1e16,
		DataDimensions:      4,
		Workers:             runtime.NumCPU(),
		Strategy:            StrategySerial,
		InitialConditions:   1,
		Seed:                1,
		PerturbationScale:   1,
		Tolerance:           0.0009,
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     ".esse",
			Buffers: BufferNames{
				Primary:   "ucm1",
				Alternate: "ucm2",
				Stable:    "svd",
			},
		},
	}
}

// Load reads esse.yml or esse.yaml from dir on top of Defaults(). Keys
// absent from the file keep their default. Returns the defaults (not an
// error) if no config file exists.
func Load(dir string) (*Config, error) {
	cfg := Defaults()
	for _, name := range []string{"esse.yml", "esse.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &cfg, nil
}

// MaxExecutionTime converts MaxExecutionSeconds to a Duration, clamping
// budgets too large to represent.
func (c Config) MaxExecutionTime() time.Duration {
	if c.MaxExecutionSeconds <= 0 {
		return 0
	}
	if c.MaxExecutionSeconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(c.MaxExecutionSeconds * float64(time.Second))
}

// Validate reports every out-of-range value at once.
func (c Config) Validate() error {
	var errs []error
	if c.InitialEnsembleSize < 1 {
		errs = append(errs, fmt.Errorf("initialEnsembleSize must be >= 1, got %d", c.InitialEnsembleSize))
	}
	if c.MaxEnsembleSize < c.InitialEnsembleSize {
		errs = append(errs, fmt.Errorf("maxEnsembleSize (%d) must be >= initialEnsembleSize (%d)", c.MaxEnsembleSize, c.InitialEnsembleSize))
	}
	if c.MaxExecutionSeconds < 0 || math.IsNaN(c.MaxExecutionSeconds) {
		errs = append(errs, fmt.Errorf("maxExecutionSeconds must be >= 0, got %v", c.MaxExecutionSeconds))
	}
	if c.DataDimensions < 1 {
		errs = append(errs, fmt.Errorf("dataDimensions must be >= 1, got %d", c.DataDimensions))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	switch c.Strategy {
	case StrategySerial, StrategyConcurrent:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must be >= 0, got %v", c.Tolerance))
	}
	if c.PerturbationScale < 0 {
		errs = append(errs, fmt.Errorf("perturbationScale must be >= 0, got %v", c.PerturbationScale))
	}
	if err := c.Store.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case BackendFile, BackendKuzu:
		if s.Dir == "" {
			return fmt.Errorf("store.dir is required for the %s backend", s.Backend)
		}
	case BackendPostgres:
		if s.DSN == "" {
			return errors.New("store.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", s.Backend)
	}

	b := s.Buffers
	if b.Primary == "" || b.Alternate == "" || b.Stable == "" {
		return errors.New("store.buffers: all three slot names are required")
	}
	if b.Primary == b.Alternate || b.Primary == b.Stable || b.Alternate == b.Stable {
		return fmt.Errorf("store.buffers: slot names must be distinct, got %q/%q/%q", b.Primary, b.Alternate, b.Stable)
	}
	return nil
}
