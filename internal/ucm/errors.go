package ucm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Store.Read for a slot never written.
	ErrNotFound = errors.New("slot not found")

	// ErrMalformed marks persisted matrix text that cannot be decoded.
	ErrMalformed = errors.New("malformed matrix data")

	// ErrBounds marks an append past the configured maximum size.
	ErrBounds = errors.New("ensemble size limit reached")

	// ErrDimension marks a forecast whose length differs from the central
	// forecast.
	ErrDimension = errors.New("forecast dimension mismatch")
)

// StorageError reports a failed read, write or decode of a slot.
type StorageError struct {
	Op   string // "read", "write", "decode"
	Slot string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ucm: %s %s: %v", e.Op, e.Slot, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BoundsError reports an append attempted on a full accumulator.
type BoundsError struct {
	Size int
	Max  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("ucm: cannot append member %d: maximum ensemble size is %d", e.Size+1, e.Max)
}

// Is makes errors.Is(err, ErrBounds) match.
func (e *BoundsError) Is(target error) bool { return target == ErrBounds }
