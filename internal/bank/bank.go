// internal/bank/bank.go
package bank

import "fmt"

// Bank abstracts the backup register bank.
// Every slot holds one 32-bit word; 16-bit roles use the low half.
// The bank depends on slot geometry only: no roles, no magic.
type Bank interface {
	ReadRegister(slot uint16) (uint32, error)
	WriteRegister(slot uint16, v uint32) error
}

// Domain is the platform side of bringing up the backup domain.
// Banks that need no bring-up simply do not implement it.
type Domain interface {
	// EnableBackupDomain enables the peripheral clocks and write access.
	EnableBackupDomain() error
	// ClearTamperFlag clears a pending tamper event.
	ClearTamperFlag() error
}

// SlotRangeError reports a slot outside the bank.
type SlotRangeError struct {
	Slot  uint16
	Slots uint16
}

func (e *SlotRangeError) Error() string {
	return fmt.Sprintf("slot %d is out of range: bank has %d slots (0-%d)",
		e.Slot, e.Slots, int(e.Slots)-1)
}

// CheckSlot returns a *SlotRangeError if slot does not fit a bank of n slots.
func CheckSlot(slot, n uint16) error {
	if slot >= n {
		return &SlotRangeError{Slot: slot, Slots: n}
	}
	return nil
}

// WidthError reports a value that does not fit a narrow register.
type WidthError struct {
	Slot  uint16
	Value uint32
	Bits  uint
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("slot %d: value 0x%X does not fit a %d-bit register", e.Slot, e.Value, e.Bits)
}

// CheckWidth returns a *WidthError if v does not fit in bits.
// Values are never truncated on the way to a narrow register.
func CheckWidth(slot uint16, v uint32, bits uint) error {
	if bits < 32 && v>>bits != 0 {
		return &WidthError{Slot: slot, Value: v, Bits: bits}
	}
	return nil
}
