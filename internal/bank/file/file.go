// internal/bank/file/file.go
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/iap-bootstate/internal/bank"
)

// image is the on-disk form of the bank: the backup domain only.
// Write access is not part of it; like PWR_CR.DBP it resets with the process.
type image struct {
	TamperPending bool              `yaml:"tamper_pending"`
	Registers     map[uint16]uint32 `yaml:"registers"`
}

// Bank is a backup register bank persisted in a YAML file.
// The file outlives the process the way backup registers outlive a reset.
// Every call re-reads the file: another process may have written it.
type Bank struct {
	mu sync.Mutex

	path    string
	slots   uint16
	protect bool
	enabled bool
}

type Config struct {
	Path  string
	Slots uint16

	// Protect drops writes until EnableBackupDomain is called on this Bank.
	Protect bool
}

// Open returns a bank bound to cfg.Path. The file is created on first write.
func Open(cfg Config) (*Bank, error) {
	if cfg.Path == "" {
		return nil, errors.New("bank file: path required")
	}
	if cfg.Slots == 0 {
		return nil, errors.New("bank file: slots must be > 0")
	}
	return &Bank{path: cfg.Path, slots: cfg.Slots, protect: cfg.Protect}, nil
}

// Close is a no-op; the file is not held open between calls.
func (b *Bank) Close() error { return nil }

// ---- bank.Bank ----

func (b *Bank) ReadRegister(slot uint16) (uint32, error) {
	if err := bank.CheckSlot(slot, b.slots); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	img, err := b.load()
	if err != nil {
		return 0, err
	}
	return img.Registers[slot], nil
}

func (b *Bank) WriteRegister(slot uint16, v uint32) error {
	if err := bank.CheckSlot(slot, b.slots); err != nil {
		return err
	}

	return b.update(func(img *image) bool {
		if b.protect && !b.enabled {
			return false
		}
		img.Registers[slot] = v
		return true
	})
}

// ---- bank.Domain ----

func (b *Bank) EnableBackupDomain() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
	return nil
}

func (b *Bank) ClearTamperFlag() error {
	return b.update(func(img *image) bool {
		img.TamperPending = false
		return true
	})
}

// ---- persistence ----

func (b *Bank) load() (*image, error) {
	img := &image{Registers: make(map[uint16]uint32)}

	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return img, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bank file: read %s: %w", b.path, err)
	}

	if err := yaml.Unmarshal(raw, img); err != nil {
		return nil, fmt.Errorf("bank file: decode %s: %w", b.path, err)
	}
	if img.Registers == nil {
		img.Registers = make(map[uint16]uint32)
	}
	return img, nil
}

// update applies fn under the lock and persists the image if fn reports a change.
func (b *Bank) update(fn func(img *image) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	img, err := b.load()
	if err != nil {
		return err
	}
	if !fn(img) {
		return nil
	}
	return b.store(img)
}

// store writes the image atomically (temp file + rename).
func (b *Bank) store(img *image) error {
	raw, err := yaml.Marshal(img)
	if err != nil {
		return fmt.Errorf("bank file: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("bank file: temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("bank file: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("bank file: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("bank file: rename to %s: %w", b.path, err)
	}
	return nil
}
