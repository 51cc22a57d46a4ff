package mcptools

import "github.com/dusk-indust/esse/internal/status"

// --- MCP Tool Types for the server mode (--serve-mcp) ---

// RunEnsembleInput is the input for the run_ensemble MCP tool. Zero values
// keep the server's configured defaults.
type RunEnsembleInput struct {
	Strategy            string   `json:"strategy,omitempty" jsonschema:"execution strategy: serial or concurrent"`
	InitialEnsembleSize int      `json:"initialEnsembleSize,omitempty" jsonschema:"ensemble size of the first iteration"`
	MaxEnsembleSize     int      `json:"maxEnsembleSize,omitempty" jsonschema:"ensemble size at which the run stops"`
	MaxExecutionSeconds *float64 `json:"maxExecutionSeconds,omitempty" jsonschema:"wall-clock budget in seconds"`
	Workers             int      `json:"workers,omitempty" jsonschema:"worker pool size for the concurrent strategy"`
	Seed                *uint64  `json:"seed,omitempty" jsonschema:"seed of the reference perturbations"`
	Tolerance           float64  `json:"tolerance,omitempty" jsonschema:"relative change in E treated as converged"`
}

// RunEnsembleOutput is the result of the run_ensemble MCP tool.
type RunEnsembleOutput struct {
	RunID          string  `json:"runId,omitempty"`
	Strategy       string  `json:"strategy"`
	Status         string  `json:"status"` // "completed" or "failed"
	Outcome        string  `json:"outcome,omitempty"`
	Message        string  `json:"message"`
	EnsembleSize   int     `json:"ensembleSize"`
	Members        int     `json:"members"`
	Iterations     int     `json:"iterations"`
	E              float64 `json:"e"`
	II             float64 `json:"ii"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// InspectBuffersInput is the input for the inspect_buffers MCP tool.
type InspectBuffersInput struct{}

// InspectBuffersOutput is the result of the inspect_buffers MCP tool.
type InspectBuffersOutput struct {
	Slots  []status.SlotInfo `json:"slots"`
	Newest string            `json:"newest,omitempty"`
}
