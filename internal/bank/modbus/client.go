// internal/bank/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/iap-bootstate/internal/bank"
)

// coilOn is the FC5 value for ON.
const coilOn uint16 = 0xFF00

// registerClient is the subset of modbus.Client the bank uses.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

// Bank implements bank.Bank over Modbus TCP holding registers.
// Slot s occupies two registers at BaseAddress+2*s, high word first.
// It serializes requests because one slot is two registers on the wire.
type Bank struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerClient

	endpoint   string
	slots      uint16
	base       uint16
	unlockCoil *uint16
	tamperCoil *uint16
}

// Config is minimal transport and geometry config.
type Config struct {
	Endpoint    string
	UnitID      uint8
	Timeout     time.Duration
	Slots       uint16
	BaseAddress uint16

	// Optional coils driven by bank.Domain. Nil means no-op.
	UnlockCoil *uint16
	TamperCoil *uint16
}

// New creates a connected Modbus TCP bank.
func New(cfg Config) (*Bank, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("bank modbus: endpoint required")
	}
	if err := checkGeometry(cfg); err != nil {
		return nil, err
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("bank modbus: connect %s: %w", cfg.Endpoint, err)
	}

	b := newBank(cfg, modbus.NewClient(h))
	b.handler = h
	return b, nil
}

func newBank(cfg Config, c registerClient) *Bank {
	return &Bank{
		client:     c,
		endpoint:   cfg.Endpoint,
		slots:      cfg.Slots,
		base:       cfg.BaseAddress,
		unlockCoil: cfg.UnlockCoil,
		tamperCoil: cfg.TamperCoil,
	}
}

func checkGeometry(cfg Config) error {
	if cfg.Slots == 0 {
		return errors.New("bank modbus: slots must be > 0")
	}
	last := uint32(cfg.BaseAddress) + 2*uint32(cfg.Slots) - 1
	if last > 0xFFFF {
		return fmt.Errorf("bank modbus: base %d with %d slots exceeds register address space", cfg.BaseAddress, cfg.Slots)
	}
	return nil
}

// Close closes the TCP connection.
func (b *Bank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handler == nil {
		return nil
	}
	return b.handler.Close()
}

// ---- bank.Bank ----

func (b *Bank) ReadRegister(slot uint16) (uint32, error) {
	if err := bank.CheckSlot(slot, b.slots); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	addr := b.addr(slot)
	raw, err := b.client.ReadHoldingRegisters(addr, 2)
	if err != nil {
		return 0, fmt.Errorf("bank modbus: ep=%s slot=%d addr=%d read: %w", b.endpoint, slot, addr, err)
	}
	if len(raw) < 4 {
		return 0, fmt.Errorf("bank modbus: ep=%s slot=%d short payload (%d bytes)", b.endpoint, slot, len(raw))
	}

	regs := unpackRegisters(raw[:4])
	return uint32(regs[0])<<16 | uint32(regs[1]), nil
}

func (b *Bank) WriteRegister(slot uint16, v uint32) error {
	if err := bank.CheckSlot(slot, b.slots); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	addr := b.addr(slot)
	payload := packRegisters([]uint16{uint16(v >> 16), uint16(v)})

	if _, err := b.client.WriteMultipleRegisters(addr, 2, payload); err != nil {
		return fmt.Errorf("bank modbus: ep=%s slot=%d addr=%d write: %w", b.endpoint, slot, addr, err)
	}
	return nil
}

// ---- bank.Domain ----

func (b *Bank) EnableBackupDomain() error {
	return b.setCoil("unlock", b.unlockCoil)
}

func (b *Bank) ClearTamperFlag() error {
	return b.setCoil("tamper", b.tamperCoil)
}

// setCoil drives coil ON and leaves it there; the rig reads it as a level.
func (b *Bank) setCoil(name string, coil *uint16) error {
	if coil == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.client.WriteSingleCoil(*coil, coilOn); err != nil {
		return fmt.Errorf("bank modbus: ep=%s %s coil %d: %w", b.endpoint, name, *coil, err)
	}
	return nil
}

// ---- helpers (pure geometry) ----

func (b *Bank) addr(slot uint16) uint16 {
	return b.base + 2*slot
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
