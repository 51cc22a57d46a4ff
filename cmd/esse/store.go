package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dusk-indust/esse/internal/config"
	"github.com/dusk-indust/esse/internal/ucm"
)

// openStore opens the buffer store selected by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (ucm.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return ucm.NewFileStore(cfg.Dir)
	case config.BackendMemory:
		return ucm.NewMemStore(), nil
	case config.BackendPostgres:
		return ucm.NewPostgresStore(ctx, cfg.DSN)
	case config.BackendKuzu:
		return openKuzuStore(filepath.Join(cfg.Dir, "esse.kuzu"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func bufferNames(cfg config.StoreConfig) ucm.Names {
	return ucm.Names{
		Primary:   cfg.Buffers.Primary,
		Alternate: cfg.Buffers.Alternate,
		Stable:    cfg.Buffers.Stable,
	}
}
