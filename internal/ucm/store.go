package ucm

import (
	"context"
	"io"
)

// Store persists slot contents. Implementations: FileStore (default),
// MemStore (tests, in-process runs), PostgresStore, KuzuStore (cgo).
//
// A Write replaces the whole slot; readers observe either the previous or
// the new content, never a mix.
type Store interface {
	io.Closer

	// Read returns the slot content, or an error wrapping ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the slot content.
	Write(ctx context.Context, name string, data []byte) error
}

// Names identifies the three slots of a run.
type Names struct {
	Primary   string // write buffer for even row indexes
	Alternate string // write buffer for odd row indexes
	Stable    string // slot read by the decomposition
}

// DefaultNames returns the historical slot names.
func DefaultNames() Names {
	return Names{Primary: "ucm1", Alternate: "ucm2", Stable: "svd"}
}

// Buffer returns the write buffer used for a matrix whose last row index
// has the given parity.
func (n Names) Buffer(parity int) string {
	if parity%2 == 0 {
		return n.Primary
	}
	return n.Alternate
}

// All returns the slot names in buffer, buffer, stable order.
func (n Names) All() []string {
	return []string{n.Primary, n.Alternate, n.Stable}
}

// Clear empties all three slots so a run never observes a previous run's
// matrix.
func Clear(ctx context.Context, s Store, names Names) error {
	for _, name := range names.All() {
		if err := s.Write(ctx, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and decodes one slot. A slot never written decodes to the
// empty matrix.
func Load(ctx context.Context, s Store, name string) (MatrixView, error) {
	data, err := s.Read(ctx, name)
	if err != nil {
		return MatrixView{}, err
	}
	m, err := Decode(data)
	if err != nil {
		return MatrixView{}, &StorageError{Op: "decode", Slot: name, Err: err}
	}
	return m, nil
}
