// internal/config/config.go
package config

type Config struct {
	BootState BootStateConfig `yaml:"bootstate"`
}

type BootStateConfig struct {
	Layout  LayoutConfig  `yaml:"layout"`
	Magic   MagicConfig   `yaml:"magic"`
	Backend BackendConfig `yaml:"backend"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ---- LAYOUT ----

// LayoutConfig mirrors the bootloader's slot map.
// Nil slots fall back to the PiOS default; slot 0 is a valid slot.
type LayoutConfig struct {
	MagicReg1 *uint16  `yaml:"magic_reg_1"`
	MagicReg2 *uint16  `yaml:"magic_reg_2"`
	BootCount *uint16  `yaml:"boot_count"`
	Commands  []uint16 `yaml:"commands"` // exactly 3 when set
	BankSlots uint16   `yaml:"bank_slots"`
}

// ---- MAGIC ----

type MagicConfig struct {
	Word1 uint16 `yaml:"word_1"`
	Word2 uint16 `yaml:"word_2"`
}

// ---- BACKEND ----

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendModbus = "modbus"
)

type BackendConfig struct {
	Kind string `yaml:"kind"`

	// modbus
	Endpoint    string  `yaml:"endpoint"`
	UnitID      uint8   `yaml:"unit_id"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	BaseAddress uint16  `yaml:"base_address"`
	UnlockCoil  *uint16 `yaml:"unlock_coil"`
	TamperCoil  *uint16 `yaml:"tamper_coil"`

	// file
	Path string `yaml:"path"`

	// memory, file
	Protect bool `yaml:"protect"`
}

// ---- WATCH ----

type WatchConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
