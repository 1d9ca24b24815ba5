// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/iap-bootstate/internal/layout"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// SLOT MAP VALIDATION
	// ------------------------------------------------------------

	if n := len(cfg.BootState.Layout.Commands); n != 0 && n != layout.CommandSlots {
		return fmt.Errorf(
			"layout: commands must list exactly %d slots, got %d",
			layout.CommandSlots,
			n,
		)
	}

	l := cfg.Layout()
	if err := l.Validate(); err != nil {
		return err
	}
	if err := cfg.Magic().Validate(); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// BACKEND VALIDATION
	// ------------------------------------------------------------

	b := cfg.BootState.Backend

	if b.TimeoutMs < 0 {
		return fmt.Errorf("backend: timeout_ms must be >= 0, got %d", b.TimeoutMs)
	}

	switch b.Kind {
	case "", BackendMemory:
		// nothing to check

	case BackendFile:
		if b.Path == "" {
			return fmt.Errorf("backend %q: path is required", b.Kind)
		}

	case BackendModbus:
		if b.Endpoint == "" {
			return fmt.Errorf("backend %q: endpoint is required", b.Kind)
		}

		// each slot is two holding registers
		last := uint32(b.BaseAddress) + 2*uint32(l.BankSlots) - 1
		if last > 0xFFFF {
			return fmt.Errorf(
				"backend %q: base_address=%d with %d slots ends at register %d (max 65535)",
				b.Kind,
				b.BaseAddress,
				l.BankSlots,
				last,
			)
		}

		if b.UnlockCoil != nil && b.TamperCoil != nil && *b.UnlockCoil == *b.TamperCoil {
			return fmt.Errorf(
				"backend %q: coil collision: unlock_coil and tamper_coil both use coil %d",
				b.Kind,
				*b.UnlockCoil,
			)
		}

	default:
		return fmt.Errorf("backend: unknown kind %q (want memory, file or modbus)", b.Kind)
	}

	if cfg.BootState.Watch.IntervalMs < 0 {
		return fmt.Errorf("watch: interval_ms must be >= 0, got %d", cfg.BootState.Watch.IntervalMs)
	}

	return nil
}
