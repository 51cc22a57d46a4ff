package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/export"
	"github.com/dusk-indust/esse/internal/ucm"
)

func runExport(ctx context.Context, w io.Writer, store ucm.Store, cfg config.StoreConfig) error {
	data, err := export.ExportSlot(ctx, store, cfg.Buffers.Stable, time.Now())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return export.WriteJSON(w, data)
}
