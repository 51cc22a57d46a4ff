//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/esse/internal/ucm"
)

func openKuzuStore(string) (ucm.Store, error) {
	return nil, errors.New("kuzu store requires a cgo build")
}
