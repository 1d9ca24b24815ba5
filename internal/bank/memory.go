// internal/bank/memory.go
package bank

import "sync"

// Memory is an in-memory backup register bank.
// It is the simulated backing store used by tests and the memory backend.
type Memory struct {
	mu sync.Mutex

	regs    []uint32
	bits    uint
	protect bool
	enabled bool
	tamper  bool
}

// NewMemory returns a writable bank of n zeroed slots.
func NewMemory(n uint16) *Memory {
	return &Memory{regs: make([]uint32, n), bits: 32}
}

// NewNarrowMemory returns a writable bank of n 16-bit slots, shaped like the
// STM32F1 BKP data registers. Wider values are rejected with *WidthError.
func NewNarrowMemory(n uint16) *Memory {
	return &Memory{regs: make([]uint32, n), bits: 16}
}

// NewProtectedMemory returns a bank that drops writes until EnableBackupDomain
// is called, the way the silicon ignores writes while backup access is off.
func NewProtectedMemory(n uint16) *Memory {
	return &Memory{regs: make([]uint32, n), bits: 32, protect: true}
}

func (m *Memory) ReadRegister(slot uint16) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := CheckSlot(slot, uint16(len(m.regs))); err != nil {
		return 0, err
	}
	return m.regs[slot], nil
}

func (m *Memory) WriteRegister(slot uint16, v uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := CheckSlot(slot, uint16(len(m.regs))); err != nil {
		return err
	}
	if err := CheckWidth(slot, v, m.bits); err != nil {
		return err
	}
	if m.protect && !m.enabled {
		return nil
	}
	m.regs[slot] = v
	return nil
}

// ---- bank.Domain ----

func (m *Memory) EnableBackupDomain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	return nil
}

func (m *Memory) ClearTamperFlag() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tamper = false
	return nil
}

// ---- inspection ----

// Enabled reports whether backup write access has been enabled.
func (m *Memory) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// TamperPending reports whether a tamper event is pending.
func (m *Memory) TamperPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tamper
}

// SetTamperPending raises a tamper event.
func (m *Memory) SetTamperPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tamper = true
}

// Registers returns a copy of the whole bank.
func (m *Memory) Registers() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uint32, len(m.regs))
	copy(out, m.regs)
	return out
}
