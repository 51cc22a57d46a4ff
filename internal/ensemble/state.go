package ensemble

import (
	"sync"

	"github.com/dusk-indust/esse/internal/oracle"
)

// RunState is the shared, mutex-guarded state of one run. n only grows and
// never exceeds the cap; once cancelled, no further unit can be claimed.
type RunState struct {
	mu sync.Mutex

	n      int
	max    int
	reason StopReason
	latest oracle.RankPair

	converged bool
	cancelled bool

	dispatched         int
	completed          int
	dispatchedAtCancel int
	iterations         int
}

func newRunState(n, max int) *RunState {
	return &RunState{n: n, max: max}
}

// N returns the current ensemble size.
func (s *RunState) N() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Grow increases n by one. It returns false, leaving n unchanged, at the
// cap.
func (s *RunState) Grow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n >= s.max {
		return false
	}
	s.n++
	return true
}

// Declare records a stop reason and cancels the run. The first declared
// reason wins, except that convergence always upgrades an earlier reason.
// It reports whether the call changed the outcome.
func (s *RunState) Declare(reason StopReason) bool {
	if reason == StopNone {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declareLocked(reason)
}

func (s *RunState) declareLocked(reason StopReason) bool {
	if reason == StopConverged {
		s.converged = true
	}
	if s.reason != StopNone && reason != StopConverged {
		return false
	}
	if s.reason == reason {
		return false
	}
	if !s.cancelled {
		s.cancelled = true
		s.dispatchedAtCancel = s.dispatched
	}
	s.reason = reason
	return true
}

// Reason returns the declared stop reason, or StopNone.
func (s *RunState) Reason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Cancelled reports whether claiming has stopped.
func (s *RunState) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// LatestRank returns the most recently recorded rank pair.
func (s *RunState) LatestRank() oracle.RankPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// RecordRank stores rp as the latest rank pair and counts one iteration.
func (s *RunState) RecordRank(rp oracle.RankPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = rp
	s.iterations++
}

// abort stops claiming after a failed unit without declaring an outcome.
func (s *RunState) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cancelled {
		s.cancelled = true
		s.dispatchedAtCancel = s.dispatched
	}
}

// claim hands out the next unit index. Beyond the first n units each claim
// extends n by one; a claim past the cap declares StopSizeCapped instead.
func (s *RunState) claim() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return 0, false
	}
	if s.dispatched >= s.n {
		if s.n >= s.max {
			s.declareLocked(StopSizeCapped)
			return 0, false
		}
		s.n++
	}
	s.dispatched++
	return s.dispatched - 1, true
}

// dispatch counts k units handed out by the serial strategy.
func (s *RunState) dispatch(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched += k
}

// complete counts k finished units.
func (s *RunState) complete(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed += k
}

// stateView is a consistent copy of RunState used for reports.
type stateView struct {
	n                  int
	reason             StopReason
	converged          bool
	cancelled          bool
	latest             oracle.RankPair
	dispatched         int
	completed          int
	dispatchedAtCancel int
	iterations         int
}

func (s *RunState) view() stateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateView{
		n:                  s.n,
		reason:             s.reason,
		converged:          s.converged,
		cancelled:          s.cancelled,
		latest:             s.latest,
		dispatched:         s.dispatched,
		completed:          s.completed,
		dispatchedAtCancel: s.dispatchedAtCancel,
		iterations:         s.iterations,
	}
}
