// internal/iap/options.go
package iap

import (
	"io"
	"log/slog"

	"github.com/tamzrod/iap-bootstate/internal/bank"
	"github.com/tamzrod/iap-bootstate/internal/layout"
)

type options struct {
	layout layout.Layout
	magic  layout.Magic
	logger *slog.Logger
	domain bank.Domain
}

func defaultOptions() options {
	return options{
		layout: layout.Default(),
		magic:  layout.DefaultMagic(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures a Store.
type Option func(*options)

// WithLayout overrides the PiOS slot map. It must match the bootloader build.
func WithLayout(l layout.Layout) Option {
	return func(o *options) {
		o.layout = l
	}
}

// WithMagic overrides the magic pair. It must match the bootloader build.
func WithMagic(m layout.Magic) Option {
	return func(o *options) {
		o.magic = m
	}
}

// WithLogger sets the logger for store operations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDomain sets the backup domain bring-up used by Initialize.
// Without it, Initialize uses the bank itself when it implements bank.Domain.
func WithDomain(d bank.Domain) Option {
	return func(o *options) {
		o.domain = d
	}
}
