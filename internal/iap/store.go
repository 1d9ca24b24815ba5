// internal/iap/store.go
package iap

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tamzrod/iap-bootstate/internal/bank"
	"github.com/tamzrod/iap-bootstate/internal/layout"
)

// Store is the persistent boot-state store.
// It holds no boot state of its own: every answer is recomputed from the bank.
//
// The mutex makes magic-pair sequences atomic for callers sharing this Store.
// The bank itself is shared with the other boot stage and is not locked.
type Store struct {
	mu sync.Mutex

	bank   bank.Bank
	domain bank.Domain
	layout layout.Layout
	magic  layout.Magic
	log    *slog.Logger
}

// New builds a store over b. Layout and magic are validated up front.
func New(b bank.Bank, opts ...Option) (*Store, error) {
	if b == nil {
		return nil, fmt.Errorf("iap: bank required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.layout.Validate(); err != nil {
		return nil, fmt.Errorf("iap: %w", err)
	}
	if err := o.magic.Validate(); err != nil {
		return nil, fmt.Errorf("iap: %w", err)
	}

	domain := o.domain
	if domain == nil {
		if d, ok := b.(bank.Domain); ok {
			domain = d
		}
	}

	return &Store{
		bank:   b,
		domain: domain,
		layout: o.layout,
		magic:  o.magic,
		log:    o.logger,
	}, nil
}

// Layout returns the slot map in use.
func (s *Store) Layout() layout.Layout { return s.layout }

// Magic returns the magic pair in use.
func (s *Store) Magic() layout.Magic { return s.magic }

// Initialize enables the backup domain and clears a pending tamper event.
// It is idempotent. Without a domain it does nothing.
func (s *Store) Initialize() error {
	if s.domain == nil {
		return nil
	}
	if err := s.domain.EnableBackupDomain(); err != nil {
		return fmt.Errorf("iap: enable backup domain: %w", err)
	}
	if err := s.domain.ClearTamperFlag(); err != nil {
		return fmt.Errorf("iap: clear tamper flag: %w", err)
	}
	s.log.Debug("backup domain initialized")
	return nil
}

// ---- magic pair ----

// CheckRequest reports whether both magic slots hold their magic words.
// It does not clear the request.
func (s *Store) CheckRequest() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w1, w2, err := s.readPair()
	if err != nil {
		return false, err
	}
	return w1 == s.magic.Word1 && w2 == s.magic.Word2, nil
}

// SetRequestPhase1 writes the first magic word only.
// Until phase 2 follows, the pair is partial and CheckRequest reports false.
func (s *Store) SetRequestPhase1() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write16("magic_reg_1", s.layout.Magic1, s.magic.Word1)
}

// SetRequestPhase2 writes the second magic word only.
func (s *Store) SetRequestPhase2() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write16("magic_reg_2", s.layout.Magic2, s.magic.Word2)
}

// Arm writes both magic words inside one critical section.
// The two-phase calls remain for bootloaders that expect them.
func (s *Store) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write16("magic_reg_1", s.layout.Magic1, s.magic.Word1); err != nil {
		return err
	}
	if err := s.write16("magic_reg_2", s.layout.Magic2, s.magic.Word2); err != nil {
		return err
	}
	s.log.Info("iap request armed")
	return nil
}

// ClearRequest zeroes both magic slots.
func (s *Store) ClearRequest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write16("magic_reg_1", s.layout.Magic1, 0); err != nil {
		return err
	}
	if err := s.write16("magic_reg_2", s.layout.Magic2, 0); err != nil {
		return err
	}
	s.log.Debug("iap request cleared")
	return nil
}

// ---- boot counter ----

// ReadBootCount returns the boot counter.
func (s *Store) ReadBootCount() (uint16, error) {
	v, err := s.read("boot_count", s.layout.BootCount)
	return uint16(v), err
}

// WriteBootCount sets the boot counter. Every 16-bit value is valid.
func (s *Store) WriteBootCount(n uint16) error {
	return s.write16("boot_count", s.layout.BootCount, n)
}

// ---- boot commands ----

// ReadBootCommand returns command slot i (0..2).
// An index outside the command slots returns *CommandIndexError and reads nothing.
func (s *Store) ReadBootCommand(i int) (uint32, error) {
	slot, err := s.commandSlot(i)
	if err != nil {
		return 0, err
	}
	return s.read(commandName(i), slot)
}

// WriteBootCommand sets command slot i (0..2).
// An index outside the command slots returns *CommandIndexError and writes nothing.
func (s *Store) WriteBootCommand(i int, v uint32) error {
	slot, err := s.commandSlot(i)
	if err != nil {
		return err
	}
	if err := s.bank.WriteRegister(slot, v); err != nil {
		return fmt.Errorf("iap: write %s: %w", commandName(i), err)
	}
	s.log.Debug("register written", "role", commandName(i), "slot", slot, "value", v)
	return nil
}

// MustReadBootCommand is ReadBootCommand for firmware callers that treat a
// bad index as an assertion failure. It panics on any error.
func (s *Store) MustReadBootCommand(i int) uint32 {
	v, err := s.ReadBootCommand(i)
	if err != nil {
		panic(err)
	}
	return v
}

// MustWriteBootCommand panics on any error, see MustReadBootCommand.
func (s *Store) MustWriteBootCommand(i int, v uint32) {
	if err := s.WriteBootCommand(i, v); err != nil {
		panic(err)
	}
}

// ---- internal ----

func (s *Store) commandSlot(i int) (uint16, error) {
	if i < 0 || i >= layout.CommandSlots {
		err := &CommandIndexError{Index: i, Count: layout.CommandSlots}
		s.log.Warn("boot command index rejected", "index", i)
		return 0, err
	}
	return s.layout.Commands[i], nil
}

func (s *Store) readPair() (uint16, uint16, error) {
	w1, err := s.read("magic_reg_1", s.layout.Magic1)
	if err != nil {
		return 0, 0, err
	}
	w2, err := s.read("magic_reg_2", s.layout.Magic2)
	if err != nil {
		return 0, 0, err
	}
	return uint16(w1), uint16(w2), nil
}

func (s *Store) read(role string, slot uint16) (uint32, error) {
	v, err := s.bank.ReadRegister(slot)
	if err != nil {
		return 0, fmt.Errorf("iap: read %s: %w", role, err)
	}
	return v, nil
}

func (s *Store) write16(role string, slot uint16, v uint16) error {
	if err := s.bank.WriteRegister(slot, uint32(v)); err != nil {
		return fmt.Errorf("iap: write %s: %w", role, err)
	}
	s.log.Debug("register written", "role", role, "slot", slot, "value", v)
	return nil
}

func commandName(i int) string {
	return fmt.Sprintf("command[%d]", i)
}
