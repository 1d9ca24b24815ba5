// internal/config/normalize.go
package config

import "github.com/tamzrod/iap-bootstate/internal/layout"

const (
	DefaultTimeoutMs       = 1000
	DefaultWatchIntervalMs = 500
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	bs := &cfg.BootState

	// Resolve the effective layout so later stages see concrete slots.
	l := cfg.Layout()
	bs.Layout = LayoutConfig{
		MagicReg1: ptr(l.Magic1),
		MagicReg2: ptr(l.Magic2),
		BootCount: ptr(l.BootCount),
		Commands:  append([]uint16(nil), l.Commands[:]...),
		BankSlots: l.BankSlots,
	}

	m := cfg.Magic()
	bs.Magic = MagicConfig{Word1: m.Word1, Word2: m.Word2}

	if bs.Backend.Kind == "" {
		bs.Backend.Kind = BackendMemory
	}
	if bs.Backend.TimeoutMs <= 0 {
		bs.Backend.TimeoutMs = DefaultTimeoutMs
	}
	if bs.Watch.IntervalMs <= 0 {
		bs.Watch.IntervalMs = DefaultWatchIntervalMs
	}
}

// Layout returns the effective slot map: configured slots over the PiOS default.
// It does not mutate configuration.
func (c *Config) Layout() layout.Layout {
	l := layout.Default()
	lc := c.BootState.Layout

	if lc.MagicReg1 != nil {
		l.Magic1 = *lc.MagicReg1
	}
	if lc.MagicReg2 != nil {
		l.Magic2 = *lc.MagicReg2
	}
	if lc.BootCount != nil {
		l.BootCount = *lc.BootCount
	}
	if len(lc.Commands) == layout.CommandSlots {
		copy(l.Commands[:], lc.Commands)
	}
	if lc.BankSlots != 0 {
		l.BankSlots = lc.BankSlots
	}
	return l
}

// Magic returns the effective magic pair: configured words over the default.
func (c *Config) Magic() layout.Magic {
	m := layout.DefaultMagic()
	if c.BootState.Magic.Word1 != 0 {
		m.Word1 = c.BootState.Magic.Word1
	}
	if c.BootState.Magic.Word2 != 0 {
		m.Word2 = c.BootState.Magic.Word2
	}
	return m
}

func ptr(v uint16) *uint16 { return &v }
