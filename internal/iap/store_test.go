// internal/iap/store_test.go
package iap

import (
	"errors"
	"strings"
	"testing"

	"github.com/tamzrod/iap-bootstate/internal/bank"
	"github.com/tamzrod/iap-bootstate/internal/layout"
)

// ---- fake bank ----

// countingBank wraps a memory bank and counts accesses.
type countingBank struct {
	*bank.Memory
	reads  int
	writes int
	fail   error
}

func (c *countingBank) ReadRegister(slot uint16) (uint32, error) {
	c.reads++
	if c.fail != nil {
		return 0, c.fail
	}
	return c.Memory.ReadRegister(slot)
}

func (c *countingBank) WriteRegister(slot uint16, v uint32) error {
	c.writes++
	if c.fail != nil {
		return c.fail
	}
	return c.Memory.WriteRegister(slot, v)
}

func newStore(t *testing.T) (*Store, *countingBank) {
	t.Helper()

	b := &countingBank{Memory: bank.NewMemory(layout.DefaultBankSlots)}
	s, err := New(b)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() err=%v", err)
	}
	return s, b
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup err=%v", err)
	}
}

func mustCheck(t *testing.T, s *Store) bool {
	t.Helper()

	ok, err := s.CheckRequest()
	if err != nil {
		t.Fatalf("CheckRequest() err=%v", err)
	}
	return ok
}

// ---- construction ----

func TestNew_RejectsBadLayout(t *testing.T) {
	l := layout.Default()
	l.Magic2 = l.Magic1

	if _, err := New(bank.NewMemory(20), WithLayout(l)); err == nil {
		t.Fatalf("expected layout error, got nil")
	}
}

func TestNew_RejectsZeroMagic(t *testing.T) {
	if _, err := New(bank.NewMemory(20), WithMagic(layout.Magic{Word1: 1})); err == nil {
		t.Fatalf("expected magic error, got nil")
	}
}

func TestNew_NilBank(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil bank, got nil")
	}
}

// ---- initialize ----

func TestInitialize_EnablesDomainAndClearsTamper(t *testing.T) {
	m := bank.NewProtectedMemory(20)
	m.SetTamperPending()

	s, err := New(m)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	// writes before Initialize are lost, as on silicon
	must(t, s.WriteBootCount(5))
	if n, _ := s.ReadBootCount(); n != 0 {
		t.Fatalf("write before Initialize should be dropped, got %d", n)
	}

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() err=%v", err)
	}
	if !m.Enabled() {
		t.Fatalf("backup domain not enabled")
	}
	if m.TamperPending() {
		t.Fatalf("tamper flag not cleared")
	}

	// idempotent
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize() err=%v", err)
	}

	must(t, s.WriteBootCount(5))
	if n, _ := s.ReadBootCount(); n != 5 {
		t.Fatalf("got=%d want=5", n)
	}
}

type fakeDomain struct {
	enabled, cleared int
}

func (d *fakeDomain) EnableBackupDomain() error { d.enabled++; return nil }
func (d *fakeDomain) ClearTamperFlag() error    { d.cleared++; return nil }

func TestInitialize_ExplicitDomainWins(t *testing.T) {
	m := bank.NewProtectedMemory(20)
	d := &fakeDomain{}

	s, err := New(m, WithDomain(d))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() err=%v", err)
	}

	if d.enabled != 1 || d.cleared != 1 {
		t.Fatalf("domain calls: enabled=%d cleared=%d", d.enabled, d.cleared)
	}
	if m.Enabled() {
		t.Fatalf("bank domain should not be used when WithDomain is set")
	}
}

// ---- magic pair ----

func TestCheckRequest_FalseWhenCleared(t *testing.T) {
	s, _ := newStore(t)

	if err := s.ClearRequest(); err != nil {
		t.Fatalf("ClearRequest() err=%v", err)
	}
	if mustCheck(t, s) {
		t.Fatalf("cleared store reports armed")
	}
}

func TestCheckRequest_PhaseOneOnlyNotArmed(t *testing.T) {
	s, _ := newStore(t)

	if err := s.SetRequestPhase1(); err != nil {
		t.Fatalf("SetRequestPhase1() err=%v", err)
	}
	if mustCheck(t, s) {
		t.Fatalf("phase 1 alone reports armed")
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}
	if snap.Phase() != PhasePartial {
		t.Fatalf("phase: got=%s want=partial", snap.Phase())
	}
}

func TestCheckRequest_PhaseTwoOnlyNotArmed(t *testing.T) {
	s, _ := newStore(t)

	must(t, s.SetRequestPhase2())
	if mustCheck(t, s) {
		t.Fatalf("phase 2 alone reports armed")
	}
}

func TestCheckRequest_BothPhasesArmed(t *testing.T) {
	s, b := newStore(t)

	must(t, s.SetRequestPhase1())
	must(t, s.SetRequestPhase2())

	if !mustCheck(t, s) {
		t.Fatalf("both phases should arm the request")
	}

	// the exact words land in the PiOS slots
	regs := b.Registers()
	if regs[layout.SlotMagic1] != 0x1122 || regs[layout.SlotMagic2] != 0xAA55 {
		t.Fatalf("unexpected magic slots: 0x%X 0x%X", regs[layout.SlotMagic1], regs[layout.SlotMagic2])
	}
}

func TestCheckRequest_NonDestructive(t *testing.T) {
	s, _ := newStore(t)
	must(t, s.Arm())

	for i := 0; i < 3; i++ {
		if !mustCheck(t, s) {
			t.Fatalf("check %d: request lost", i)
		}
	}
}

func TestCheckRequest_WrongWordNotArmed(t *testing.T) {
	s, b := newStore(t)

	must(t, s.SetRequestPhase1())
	must(t, b.Memory.WriteRegister(layout.SlotMagic2, 0xAA56))

	if mustCheck(t, s) {
		t.Fatalf("mismatched second word reports armed")
	}
}

func TestClearRequest_AfterArm(t *testing.T) {
	s, _ := newStore(t)

	if err := s.Arm(); err != nil {
		t.Fatalf("Arm() err=%v", err)
	}
	if !mustCheck(t, s) {
		t.Fatalf("Arm() did not arm")
	}

	if err := s.ClearRequest(); err != nil {
		t.Fatalf("ClearRequest() err=%v", err)
	}
	if mustCheck(t, s) {
		t.Fatalf("request still armed after clear")
	}

	snap, _ := s.Snapshot()
	if snap.Phase() != PhaseCleared {
		t.Fatalf("phase: got=%s want=cleared", snap.Phase())
	}
}

func TestCustomMagicAndLayout(t *testing.T) {
	l := layout.Layout{
		Magic1:    10,
		Magic2:    11,
		BootCount: 0,
		Commands:  [layout.CommandSlots]uint16{1, 2, 3},
		BankSlots: 12,
	}
	m := bank.NewMemory(12)

	s, err := New(m, WithLayout(l), WithMagic(layout.Magic{Word1: 0xBEEF, Word2: 0xCAFE}))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	must(t, s.Arm())
	regs := m.Registers()
	if regs[10] != 0xBEEF || regs[11] != 0xCAFE {
		t.Fatalf("magic not at configured slots: %v", regs)
	}
	if !mustCheck(t, s) {
		t.Fatalf("custom magic not armed")
	}
}

// ---- boot count ----

func TestBootCount_RoundTrip(t *testing.T) {
	s, _ := newStore(t)

	for _, v := range []uint16{0, 1, 0x7FFF, 0xFFFF} {
		if err := s.WriteBootCount(v); err != nil {
			t.Fatalf("WriteBootCount(%d) err=%v", v, err)
		}
		got, err := s.ReadBootCount()
		if err != nil {
			t.Fatalf("ReadBootCount() err=%v", err)
		}
		if got != v {
			t.Fatalf("got=%d want=%d", got, v)
		}
	}
}

// ---- boot commands ----

func TestBootCommand_RoundTripAndIndependence(t *testing.T) {
	s, _ := newStore(t)

	values := [layout.CommandSlots]uint32{0xDEADBEEF, 0, 0xFFFFFFFF}
	for i, v := range values {
		if err := s.WriteBootCommand(i, v); err != nil {
			t.Fatalf("WriteBootCommand(%d) err=%v", i, err)
		}
	}
	for i, want := range values {
		got, err := s.ReadBootCommand(i)
		if err != nil {
			t.Fatalf("ReadBootCommand(%d) err=%v", i, err)
		}
		if got != want {
			t.Fatalf("slot %d: got=0x%08X want=0x%08X", i, got, want)
		}
	}

	// rewriting slot 0 leaves 1 and 2 alone
	must(t, s.WriteBootCommand(0, 42))
	if v, _ := s.ReadBootCommand(1); v != values[1] {
		t.Fatalf("slot 1 changed: got=0x%08X", v)
	}
	if v, _ := s.ReadBootCommand(2); v != values[2] {
		t.Fatalf("slot 2 changed: got=0x%08X", v)
	}
}

func TestWriteBootCommand_OutOfRangeRejected(t *testing.T) {
	s, b := newStore(t)

	for i := 0; i < layout.CommandSlots; i++ {
		must(t, s.WriteBootCommand(i, uint32(i+1)))
	}
	before := b.Registers()
	writes := b.writes

	err := s.WriteBootCommand(3, 0xFFFFFFFF)

	var ierr *CommandIndexError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *CommandIndexError, got %v", err)
	}
	if ierr.Index != 3 || ierr.Count != layout.CommandSlots {
		t.Fatalf("unexpected error fields: %+v", ierr)
	}
	if b.writes != writes {
		t.Fatalf("rejected write reached the bank")
	}

	after := b.Registers()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("slot %d corrupted: 0x%X -> 0x%X", i, before[i], after[i])
		}
	}
}

func TestReadBootCommand_OutOfRangeRejected(t *testing.T) {
	s, b := newStore(t)
	reads := b.reads

	for _, i := range []int{3, -1, 255} {
		_, err := s.ReadBootCommand(i)
		var ierr *CommandIndexError
		if !errors.As(err, &ierr) {
			t.Fatalf("index %d: expected *CommandIndexError, got %v", i, err)
		}
	}
	if b.reads != reads {
		t.Fatalf("rejected read reached the bank")
	}
}

func TestMustWriteBootCommand_Panics(t *testing.T) {
	s, _ := newStore(t)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got none")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value should be an error, got %T", r)
		}
		var ierr *CommandIndexError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected *CommandIndexError, got %v", err)
		}
	}()

	s.MustWriteBootCommand(3, 1)
}

func TestMustReadBootCommand_Panics(t *testing.T) {
	s, b := newStore(t)
	reads := b.reads

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got none")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value should be an error, got %T", r)
		}
		var ierr *CommandIndexError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected *CommandIndexError, got %v", err)
		}
		if ierr.Index != 3 {
			t.Fatalf("unexpected index: %+v", ierr)
		}
		if b.reads != reads {
			t.Fatalf("rejected read reached the bank")
		}
	}()

	s.MustReadBootCommand(3)
}

func TestMustReadBootCommand_ValidIndex(t *testing.T) {
	s, _ := newStore(t)
	must(t, s.WriteBootCommand(2, 77))

	if v := s.MustReadBootCommand(2); v != 77 {
		t.Fatalf("got=%d want=77", v)
	}
}

func TestCommandIndexError_Message(t *testing.T) {
	err := &CommandIndexError{Index: 3, Count: 3}

	msg := err.Error()
	if !strings.Contains(msg, "index 3") {
		t.Errorf("message should contain index, got: %s", msg)
	}
	if !strings.Contains(msg, "0-2") {
		t.Errorf("message should contain range, got: %s", msg)
	}
}

// ---- narrow banks ----

func TestNarrowBank_WideCommandRejected(t *testing.T) {
	m := bank.NewNarrowMemory(11)
	s, err := New(m)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	// magic words and boot count fit 16 bits
	must(t, s.Arm())
	if !mustCheck(t, s) {
		t.Fatalf("Arm() did not arm a 16-bit bank")
	}
	must(t, s.WriteBootCount(0xFFFF))
	must(t, s.WriteBootCommand(0, 0xBEEF))

	err = s.WriteBootCommand(0, 0x12345678)
	var werr *bank.WidthError
	if !errors.As(err, &werr) {
		t.Fatalf("expected *bank.WidthError, got %v", err)
	}
	if v, _ := s.ReadBootCommand(0); v != 0xBEEF {
		t.Fatalf("command truncated or overwritten: got=0x%X", v)
	}
}

// ---- bank failures ----

func TestBankErrorPropagates(t *testing.T) {
	s, b := newStore(t)
	b.fail = errors.New("bus fault")

	if _, err := s.CheckRequest(); err == nil || !strings.Contains(err.Error(), "magic_reg_1") {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	if err := s.Arm(); err == nil {
		t.Fatalf("expected write error, got nil")
	}
	if _, err := s.Snapshot(); err == nil {
		t.Fatalf("expected snapshot error, got nil")
	}
}
