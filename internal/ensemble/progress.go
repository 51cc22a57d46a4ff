package ensemble

import (
	"fmt"

	"github.com/dusk-indust/esse/internal/config"
)

// ProgressStatus is the state of one unit of work.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent reports a serial iteration or a concurrent member unit.
type ProgressEvent struct {
	Strategy string
	Index    int // iteration (serial) or unit index (concurrent), from 0
	Size     int // ensemble size the unit works on
	Status   ProgressStatus
	Message  string
}

// Label names the unit the event refers to.
func (e ProgressEvent) Label() string {
	if e.Strategy == config.StrategySerial {
		return fmt.Sprintf("iteration %d (n=%d)", e.Index+1, e.Size)
	}
	return fmt.Sprintf("member %d", e.Index+1)
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Label())
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Label())
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s complete: %s", event.Label(), event.Message)
		}
		return fmt.Sprintf("  ✓ %s complete", event.Label())
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Label(), event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Label())
	}
}
