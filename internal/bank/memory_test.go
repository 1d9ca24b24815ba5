// internal/bank/memory_test.go
package bank

import (
	"errors"
	"strings"
	"testing"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory(4)

	if err := m.WriteRegister(2, 0xDEADBEEF); err != nil {
		t.Fatalf("write err=%v", err)
	}
	v, err := m.ReadRegister(2)
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("got=0x%08X want=0xDEADBEEF", v)
	}
}

func TestMemory_SlotOutOfRange(t *testing.T) {
	m := NewMemory(4)

	_, err := m.ReadRegister(4)
	var rerr *SlotRangeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *SlotRangeError, got %v", err)
	}
	if rerr.Slot != 4 || rerr.Slots != 4 {
		t.Fatalf("unexpected error fields: %+v", rerr)
	}

	if err := m.WriteRegister(9, 1); !errors.As(err, &rerr) {
		t.Fatalf("expected *SlotRangeError on write, got %v", err)
	}
}

func TestMemory_ProtectedDropsWritesUntilEnabled(t *testing.T) {
	m := NewProtectedMemory(4)

	if err := m.WriteRegister(1, 7); err != nil {
		t.Fatalf("write err=%v", err)
	}
	if v, _ := m.ReadRegister(1); v != 0 {
		t.Fatalf("write before enable should be dropped, got %d", v)
	}

	if err := m.EnableBackupDomain(); err != nil {
		t.Fatalf("enable err=%v", err)
	}
	if err := m.WriteRegister(1, 7); err != nil {
		t.Fatalf("write err=%v", err)
	}
	if v, _ := m.ReadRegister(1); v != 7 {
		t.Fatalf("got=%d want=7", v)
	}
}

func TestMemory_TamperFlag(t *testing.T) {
	m := NewMemory(1)
	m.SetTamperPending()

	if !m.TamperPending() {
		t.Fatalf("tamper should be pending")
	}
	if err := m.ClearTamperFlag(); err != nil {
		t.Fatalf("clear err=%v", err)
	}
	if m.TamperPending() {
		t.Fatalf("tamper should be cleared")
	}
}

func TestSlotRangeError_Message(t *testing.T) {
	err := &SlotRangeError{Slot: 25, Slots: 20}

	msg := err.Error()
	if !strings.Contains(msg, "slot 25") {
		t.Errorf("message should contain slot, got: %s", msg)
	}
	if !strings.Contains(msg, "0-19") {
		t.Errorf("message should contain range, got: %s", msg)
	}
}

func TestNarrowMemory_RejectsWideValues(t *testing.T) {
	m := NewNarrowMemory(4)

	if err := m.WriteRegister(1, 0xFFFF); err != nil {
		t.Fatalf("16-bit write err=%v", err)
	}

	err := m.WriteRegister(1, 0x10000)
	var werr *WidthError
	if !errors.As(err, &werr) {
		t.Fatalf("expected *WidthError, got %v", err)
	}
	if werr.Slot != 1 || werr.Value != 0x10000 || werr.Bits != 16 {
		t.Fatalf("unexpected error fields: %+v", werr)
	}

	// rejected, not truncated
	if v, _ := m.ReadRegister(1); v != 0xFFFF {
		t.Fatalf("slot changed by rejected write: got=0x%X", v)
	}
}

func TestCheckWidth(t *testing.T) {
	if err := CheckWidth(0, 0xFFFFFFFF, 32); err != nil {
		t.Fatalf("32-bit: unexpected error %v", err)
	}
	if err := CheckWidth(0, 0x1FFFF, 16); err == nil {
		t.Fatalf("16-bit: expected error, got nil")
	}
}
