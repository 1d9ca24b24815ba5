// internal/backend/builder.go
package backend

import (
	"fmt"
	"time"

	"github.com/tamzrod/iap-bootstate/internal/bank"
	bfile "github.com/tamzrod/iap-bootstate/internal/bank/file"
	bmodbus "github.com/tamzrod/iap-bootstate/internal/bank/modbus"
	cfg "github.com/tamzrod/iap-bootstate/internal/config"
)

// Build constructs the bank selected by the backend config and returns its closer.
// slots is the bank size from the effective layout.
// Assumes config has already passed validation.
func Build(b cfg.BackendConfig, slots uint16) (bank.Bank, func() error, error) {
	switch b.Kind {
	case "", cfg.BackendMemory:
		var m *bank.Memory
		if b.Protect {
			m = bank.NewProtectedMemory(slots)
		} else {
			m = bank.NewMemory(slots)
		}
		return m, func() error { return nil }, nil

	case cfg.BackendFile:
		f, err := bfile.Open(bfile.Config{
			Path:    b.Path,
			Slots:   slots,
			Protect: b.Protect,
		})
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil

	case cfg.BackendModbus:
		m, err := bmodbus.New(bmodbus.Config{
			Endpoint:    b.Endpoint,
			UnitID:      b.UnitID,
			Timeout:     time.Duration(b.TimeoutMs) * time.Millisecond,
			Slots:       slots,
			BaseAddress: b.BaseAddress,
			UnlockCoil:  b.UnlockCoil,
			TamperCoil:  b.TamperCoil,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil

	default:
		return nil, nil, fmt.Errorf("backend: unknown kind %q", b.Kind)
	}
}
