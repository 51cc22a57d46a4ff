// Package status summarizes the persisted slots of a run: which exist, how
// large they are and which write buffer holds the newest matrix.
package status

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/esse/internal/ucm"
)

// Slot roles.
const (
	RolePrimary   = "primary"
	RoleAlternate = "alternate"
	RoleStable    = "stable"
)

// SlotInfo describes one persisted slot.
type SlotInfo struct {
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Present   bool    `json:"present"`
	Size      int     `json:"size"`
	Symmetric bool    `json:"symmetric"`
	Trace     float64 `json:"trace"`

	// Err is set when the slot exists but cannot be decoded.
	Err string `json:"error,omitempty"`
}

// BufferStatus holds the status of the three slots.
type BufferStatus struct {
	Slots []SlotInfo `json:"slots"`

	// Newest names the write buffer holding the larger matrix, empty when
	// both are empty or missing.
	Newest string `json:"newest,omitempty"`
}

// Slot returns the info for a role.
func (b *BufferStatus) Slot(role string) (SlotInfo, bool) {
	for _, s := range b.Slots {
		if s.Role == role {
			return s, true
		}
	}
	return SlotInfo{}, false
}

// Inspect reads every slot of names from s. Missing and undecodable slots
// are reported in the result; other store failures are returned.
func Inspect(ctx context.Context, s ucm.Store, names ucm.Names) (*BufferStatus, error) {
	roles := []struct{ role, name string }{
		{RolePrimary, names.Primary},
		{RoleAlternate, names.Alternate},
		{RoleStable, names.Stable},
	}

	bs := &BufferStatus{}
	for _, r := range roles {
		info := SlotInfo{Name: r.name, Role: r.role}
		m, err := ucm.Load(ctx, s, r.name)
		switch {
		case errors.Is(err, ucm.ErrNotFound):
		case errors.Is(err, ucm.ErrMalformed):
			info.Present = true
			info.Err = err.Error()
		case err != nil:
			return nil, fmt.Errorf("status: %w", err)
		default:
			info.Present = true
			info.Size = m.Size()
			info.Symmetric = m.IsSymmetric(0)
			info.Trace = m.Trace()
		}
		bs.Slots = append(bs.Slots, info)
	}

	primary, alternate := bs.Slots[0], bs.Slots[1]
	switch {
	case primary.Size == 0 && alternate.Size == 0:
	case primary.Size >= alternate.Size:
		bs.Newest = primary.Name
	default:
		bs.Newest = alternate.Name
	}
	return bs, nil
}

// Print writes a human-readable table of bs to w.
func Print(w io.Writer, bs *BufferStatus) {
	for _, s := range bs.Slots {
		marker := "  "
		if s.Name == bs.Newest {
			marker = "->"
		}
		switch {
		case !s.Present:
			fmt.Fprintf(w, "  %s %-10s %-9s [missing]\n", marker, s.Name, s.Role)
		case s.Err != "":
			fmt.Fprintf(w, "  %s %-10s %-9s [unreadable] %s\n", marker, s.Name, s.Role, s.Err)
		case s.Size == 0:
			fmt.Fprintf(w, "  %s %-10s %-9s [empty]\n", marker, s.Name, s.Role)
		default:
			fmt.Fprintf(w, "  %s %-10s %-9s [%dx%d] trace=%g symmetric=%t\n",
				marker, s.Name, s.Role, s.Size, s.Size, s.Trace, s.Symmetric)
		}
	}
	if bs.Newest == "" {
		fmt.Fprintln(w, "  No matrix has been written yet.")
	}
}
