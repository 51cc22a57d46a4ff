// Package export renders a persisted covariance matrix for consumption
// outside the run.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/esse/internal/ucm"
)

// MatrixExport is the top-level JSON export structure.
type MatrixExport struct {
	Slot       string      `json:"slot"`
	ExportedAt string      `json:"exportedAt"`
	Size       int         `json:"size"`
	Trace      float64     `json:"trace"`
	Variances  []float64   `json:"variances"`
	Rows       [][]float64 `json:"rows"`
}

// ExportSlot reads one slot, normally the stable one, and builds its
// export. A slot that was never written is an error.
func ExportSlot(ctx context.Context, s ucm.Store, slot string, now time.Time) (*MatrixExport, error) {
	m, err := ucm.Load(ctx, s, slot)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &MatrixExport{
		Slot:       slot,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Size:       m.Size(),
		Trace:      m.Trace(),
		Variances:  m.Diagonal(),
		Rows:       m.Rows(),
	}, nil
}

// WriteJSON writes e as indented JSON followed by a newline.
func WriteJSON(w io.Writer, e *MatrixExport) error {
	out, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
