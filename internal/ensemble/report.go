package ensemble

import (
	"fmt"
	"time"

	"github.com/dusk-indust/esse/internal/oracle"
)

// StopReason is the terminal outcome of a run.
type StopReason int

const (
	StopNone StopReason = iota
	StopConverged
	StopDeadlineExceeded
	StopSizeCapped
)

// String returns the human-readable outcome.
func (r StopReason) String() string {
	switch r {
	case StopConverged:
		return "converged"
	case StopDeadlineExceeded:
		return "deadline reached"
	case StopSizeCapped:
		return "size cap reached"
	default:
		return "none"
	}
}

// Label returns the machine-readable outcome used in metrics and JSON.
func (r StopReason) Label() string {
	switch r {
	case StopConverged:
		return "converged"
	case StopDeadlineExceeded:
		return "deadline_exceeded"
	case StopSizeCapped:
		return "size_capped"
	default:
		return "none"
	}
}

// MarshalText encodes the reason as its label.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.Label()), nil
}

// Message returns the line printed for the outcome.
func (r StopReason) Message() string {
	switch r {
	case StopConverged:
		return "Error Subspace successfully calculated!"
	case StopSizeCapped:
		return "Failed to calculate Error Subspace. Maximum ensemble size reached."
	case StopDeadlineExceeded:
		return "Failed to calculate Error Subspace. Maximum execution time reached."
	default:
		return "Error Subspace calculation did not finish."
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID    string     `json:"runId"`
	Strategy string     `json:"strategy"`
	Outcome  StopReason `json:"outcome"`

	// EnsembleSize is the final n of the run state.
	EnsembleSize int `json:"ensembleSize"`

	// Members is the size of the last accumulated matrix.
	Members int `json:"members"`

	// Iterations counts decompositions.
	Iterations int `json:"iterations"`

	Dispatched         int `json:"dispatched"`
	Completed          int `json:"completed"`
	DispatchedAtCancel int `json:"dispatchedAtCancel"`

	Rank      oracle.RankPair `json:"rank"`
	StartedAt time.Time       `json:"startedAt"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// Converged reports whether the run ended on convergence.
func (r *Report) Converged() bool { return r.Outcome == StopConverged }

// Lines returns the outcome message followed by the elapsed time.
func (r *Report) Lines() []string {
	return []string{
		r.Outcome.Message(),
		fmt.Sprintf("Total execution time: %.3f seconds.", r.Elapsed.Seconds()),
	}
}

// Process exit statuses for a finished run.
const (
	ExitConverged  = 0
	ExitIncomplete = 2
)

// ExitCode maps the outcome to a process exit status: ExitConverged when
// converged, ExitIncomplete on the size cap or the deadline.
func (r *Report) ExitCode() int {
	if r.Converged() {
		return ExitConverged
	}
	return ExitIncomplete
}
