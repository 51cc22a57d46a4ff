package mcptools

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/ensemble"
	"github.com/dusk-indust/esse/internal/status"
	"github.com/dusk-indust/esse/internal/ucm"
)

// EnsembleService handles MCP tool calls. Runs are serialized: the buffers
// belong to one run at a time.
type EnsembleService struct {
	mu   sync.Mutex
	base ensemble.Options
}

// NewEnsembleService creates an EnsembleService. base supplies the
// configuration defaults and the shared store, metrics, clock and logger;
// its Oracles field is ignored in favour of the reference oracles built per
// run.
func NewEnsembleService(base ensemble.Options) *EnsembleService {
	return &EnsembleService{base: base}
}

// RunEnsemble executes one batch run and returns its report.
func (s *EnsembleService) RunEnsemble(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunEnsembleInput,
) (*mcp.CallToolResult, RunEnsembleOutput, error) {
	cfg := s.base.Config
	applyInput(&cfg, input)
	if err := cfg.Validate(); err != nil {
		return nil, RunEnsembleOutput{
			Strategy: cfg.Strategy,
			Status:   "failed",
			Message:  err.Error(),
		}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opts := s.base
	opts.Config = cfg
	opts.Oracles = ensemble.ReferenceOracles(cfg)
	opts.OnProgress = nil

	report, err := ensemble.RunOnce(ctx, opts)
	if err != nil {
		return nil, RunEnsembleOutput{
			Strategy: cfg.Strategy,
			Status:   "failed",
			Message:  err.Error(),
		}, nil
	}

	return nil, RunEnsembleOutput{
		RunID:          report.RunID,
		Strategy:       report.Strategy,
		Status:         "completed",
		Outcome:        report.Outcome.Label(),
		Message:        report.Outcome.Message(),
		EnsembleSize:   report.EnsembleSize,
		Members:        report.Members,
		Iterations:     report.Iterations,
		E:              report.Rank.E,
		II:             report.Rank.II,
		ElapsedSeconds: report.Elapsed.Seconds(),
	}, nil
}

// InspectBuffers reports the state of the persisted slots.
func (s *EnsembleService) InspectBuffers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ InspectBuffersInput,
) (*mcp.CallToolResult, InspectBuffersOutput, error) {
	b := s.base.Config.Store.Buffers
	bs, err := status.Inspect(ctx, s.base.Store, ucm.Names{
		Primary:   b.Primary,
		Alternate: b.Alternate,
		Stable:    b.Stable,
	})
	if err != nil {
		return nil, InspectBuffersOutput{}, err
	}
	return nil, InspectBuffersOutput{Slots: bs.Slots, Newest: bs.Newest}, nil
}

func applyInput(cfg *config.Config, in RunEnsembleInput) {
	if in.Strategy != "" {
		cfg.Strategy = in.Strategy
	}
	if in.InitialEnsembleSize > 0 {
		cfg.InitialEnsembleSize = in.InitialEnsembleSize
	}
	if in.MaxEnsembleSize > 0 {
		cfg.MaxEnsembleSize = in.MaxEnsembleSize
	}
	if in.MaxExecutionSeconds != nil {
		cfg.MaxExecutionSeconds = *in.MaxExecutionSeconds
	}
	if in.Workers > 0 {
		cfg.Workers = in.Workers
	}
	if in.Seed != nil {
		cfg.Seed = *in.Seed
	}
	if in.Tolerance > 0 {
		cfg.Tolerance = in.Tolerance
	}
}
