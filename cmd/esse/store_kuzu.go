//go:build cgo

package main

import "github.com/dusk-indust/esse/internal/ucm"

func openKuzuStore(path string) (ucm.Store, error) {
	return ucm.NewKuzuFileStore(path)
}
