// internal/iap/snapshot.go
package iap

import (
	"fmt"

	"github.com/tamzrod/iap-bootstate/internal/layout"
)

// RequestPhase classifies the magic pair.
type RequestPhase uint8

const (
	// PhaseCleared means both magic slots are zero.
	PhaseCleared RequestPhase = iota
	// PhasePartial means the pair is non-zero but does not match (e.g. phase 1 only).
	PhasePartial
	// PhaseArmed means both magic words are in place.
	PhaseArmed
)

func (p RequestPhase) String() string {
	switch p {
	case PhaseCleared:
		return "cleared"
	case PhasePartial:
		return "partial"
	case PhaseArmed:
		return "armed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Snapshot is the whole boot state as read at one instant.
// It contains no logic and no memory of the past.
type Snapshot struct {
	Armed     bool
	Magic1    uint16
	Magic2    uint16
	BootCount uint16
	Commands  [layout.CommandSlots]uint32
}

// Phase classifies the magic pair. Armed wins over the raw words.
func (s Snapshot) Phase() RequestPhase {
	switch {
	case s.Armed:
		return PhaseArmed
	case s.Magic1 == 0 && s.Magic2 == 0:
		return PhaseCleared
	default:
		return PhasePartial
	}
}

// Snapshot reads every role. The magic pair is read under the store lock.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot

	s.mu.Lock()
	w1, w2, err := s.readPair()
	s.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	snap.Magic1 = w1
	snap.Magic2 = w2
	snap.Armed = w1 == s.magic.Word1 && w2 == s.magic.Word2

	if snap.BootCount, err = s.ReadBootCount(); err != nil {
		return Snapshot{}, err
	}

	for i := range snap.Commands {
		if snap.Commands[i], err = s.ReadBootCommand(i); err != nil {
			return Snapshot{}, err
		}
	}

	return snap, nil
}
