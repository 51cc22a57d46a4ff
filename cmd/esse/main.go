package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/ensemble"
	"github.com/dusk-indust/esse/internal/mcptools"
	"github.com/dusk-indust/esse/internal/telemetry"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir   string
	Strategy    string
	Initial     int
	Max         int
	MaxSeconds  float64
	Dimensions  int
	Workers     int
	Conditions  float64
	Seed        uint64
	Scale       float64
	Tolerance   float64
	Backend     string
	StoreDir    string
	DSN         string
	MetricsAddr string
	Verbose     bool
	ServeMCP    bool
	Version     bool
}

// version is set by goreleaser at build time.
var version = "dev"

// Exit statuses. A run that ends on the size cap or the deadline is not an
// error but still exits non-zero.
const (
	exitOK         = ensemble.ExitConverged
	exitError      = 1
	exitIncomplete = ensemble.ExitIncomplete
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code, err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(code)
}

func newFlagSet(flags *cliFlags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("esse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding esse.yml")
	fs.StringVar(&flags.Strategy, "strategy", "", "execution strategy: serial or concurrent")
	fs.IntVar(&flags.Initial, "initial-size", 0, "initial ensemble size")
	fs.IntVar(&flags.Max, "max-size", 0, "maximum ensemble size")
	fs.Float64Var(&flags.MaxSeconds, "max-seconds", 0, "maximum execution time in seconds")
	fs.IntVar(&flags.Dimensions, "dimensions", 0, "forecast vector length")
	fs.IntVar(&flags.Workers, "workers", 0, "worker pool size for the concurrent strategy")
	fs.Float64Var(&flags.Conditions, "conditions", 0, "initial conditions passed to the forecast model")
	fs.Uint64Var(&flags.Seed, "seed", 0, "seed of the reference perturbations")
	fs.Float64Var(&flags.Scale, "scale", 0, "standard deviation of the reference perturbations")
	fs.Float64Var(&flags.Tolerance, "tolerance", 0, "relative change in E treated as converged")
	fs.StringVar(&flags.Backend, "store", "", "buffer store backend: file, memory, postgres or kuzu")
	fs.StringVar(&flags.StoreDir, "store-dir", "", "directory (file) or database path (kuzu) of the buffer store")
	fs.StringVar(&flags.DSN, "dsn", "", "PostgreSQL connection string for the postgres store")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	fs.BoolVar(&flags.Verbose, "verbose", false, "print per-iteration progress")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	return fs
}

// loadConfig reads esse.yml from flags.ConfigDir and applies the flags the
// user set explicitly.
func loadConfig(fs *flag.FlagSet, flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strategy":
			cfg.Strategy = flags.Strategy
		case "initial-size":
			cfg.InitialEnsembleSize = flags.Initial
		case "max-size":
			cfg.MaxEnsembleSize = flags.Max
		case "max-seconds":
			cfg.MaxExecutionSeconds = flags.MaxSeconds
		case "dimensions":
			cfg.DataDimensions = flags.Dimensions
		case "workers":
			cfg.Workers = flags.Workers
		case "conditions":
			cfg.InitialConditions = flags.Conditions
		case "seed":
			cfg.Seed = flags.Seed
		case "scale":
			cfg.PerturbationScale = flags.Scale
		case "tolerance":
			cfg.Tolerance = flags.Tolerance
		case "store":
			cfg.Store.Backend = flags.Backend
		case "store-dir":
			cfg.Store.Dir = flags.StoreDir
		case "dsn":
			cfg.Store.DSN = flags.DSN
		case "metrics-addr":
			cfg.MetricsAddr = flags.MetricsAddr
		case "verbose":
			cfg.Verbose = flags.Verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	var flags cliFlags
	fs := newFlagSet(&flags, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, nil
		}
		return exitError, err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return exitOK, nil
	}

	cfg, err := loadConfig(fs, &flags)
	if err != nil {
		return exitError, err
	}
	logger := telemetry.SetupLogger(stderr)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return exitError, err
	}
	defer store.Close()

	switch fs.Arg(0) {
	case "status":
		return exitOK, runStatus(ctx, stdout, store, cfg.Store)
	case "export":
		return exitOK, runExport(ctx, stdout, store, cfg.Store)
	case "", "run":
	default:
		return exitError, fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	opts := ensemble.Options{
		Config:  *cfg,
		Oracles: ensemble.ReferenceOracles(*cfg),
		Store:   store,
		Metrics: metrics,
		Logger:  logger,
	}

	if flags.ServeMCP {
		server := mcptools.NewESSEMCPServer(mcptools.NewEnsembleService(opts))
		return exitOK, mcptools.RunStdio(ctx, server)
	}

	if cfg.Verbose {
		reporter := ensemble.NewProgressReporter()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(stderr, ensemble.FormatProgress(ev))
			}
		}()
		defer func() {
			reporter.Close()
			<-done
		}()
		opts.OnProgress = reporter.Emit
	}

	report, err := ensemble.RunOnce(ctx, opts)
	if err != nil {
		return exitError, err
	}
	for _, line := range report.Lines() {
		fmt.Fprintln(stdout, line)
	}
	logger.Debug("report", slog.String("run_id", report.RunID), slog.Int("members", report.Members))
	return report.ExitCode(), nil
}
