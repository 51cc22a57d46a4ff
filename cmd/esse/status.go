package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/status"
	"github.com/dusk-indust/esse/internal/ucm"
)

func runStatus(ctx context.Context, w io.Writer, store ucm.Store, cfg config.StoreConfig) error {
	bs, err := status.Inspect(ctx, store, bufferNames(cfg))
	if err != nil {
		return err
	}
	if fs, ok := store.(*ucm.FileStore); ok {
		fmt.Fprintf(w, "Store: %s (%s)\n\n", cfg.Backend, fs.Dir())
	} else {
		fmt.Fprintf(w, "Store: %s\n\n", cfg.Backend)
	}
	status.Print(w, bs)
	return nil
}
