package ensemble

import "errors"

var (
	// ErrNotInitialized is returned by Run before Initialize succeeded.
	ErrNotInitialized = errors.New("ensemble: coordinator not initialized")

	// ErrNoOutcome is returned when a strategy finished without declaring
	// a stop reason.
	ErrNoOutcome = errors.New("ensemble: strategy finished without an outcome")

	// ErrAlreadyRun is returned by Run once the run state is terminal.
	// Initialize starts a fresh run.
	ErrAlreadyRun = errors.New("ensemble: run already finished; call Initialize again")
)
