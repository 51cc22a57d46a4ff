package oracle

import (
	"errors"
	"fmt"
)

// Oracle names used in Error.Oracle.
const (
	NameForecast      = "forecast"
	NameDecomposition = "decomposition"
	NameConvergence   = "convergence"
)

var (
	// ErrDimension marks a forecast of the wrong length.
	ErrDimension = errors.New("forecast has wrong dimension")

	// ErrEmptyMatrix marks a decomposition request for an empty matrix.
	ErrEmptyMatrix = errors.New("cannot decompose an empty matrix")
)

// Error reports a failed oracle call.
type Error struct {
	Oracle string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Oracle, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with the oracle that produced it. It returns nil for a nil
// err and leaves an existing *Error untouched.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return err
	}
	return &Error{Oracle: name, Err: err}
}
