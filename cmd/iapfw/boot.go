// cmd/iapfw/boot.go
package main

import (
	"fmt"
	"log/slog"

	"github.com/tamzrod/iap-bootstate/internal/iap"
)

// boot runs the bootloader side of the handshake once per reset:
// bring up the backup domain, count the boot, consume a pending request.
// It reports whether the update path should be entered.
func boot(s *iap.Store, log *slog.Logger) (bool, error) {
	if err := s.Initialize(); err != nil {
		return false, err
	}

	n, err := s.ReadBootCount()
	if err != nil {
		return false, err
	}
	// wraps at 0xFFFF like the register
	n++
	if err := s.WriteBootCount(n); err != nil {
		return false, err
	}

	armed, err := s.CheckRequest()
	if err != nil {
		return false, err
	}
	if !armed {
		log.Info("normal boot", "boot_count", n)
		return false, nil
	}

	// Consume the request so the next reset boots normally.
	if err := s.ClearRequest(); err != nil {
		return false, fmt.Errorf("consume iap request: %w", err)
	}

	cmd, err := s.ReadBootCommand(0)
	if err != nil {
		return false, err
	}
	log.Info("entering iap", "boot_count", n, "command", cmd)
	return true, nil
}

// handoff leaves the boot stage through exactly one path.
func handoff(enterIAP bool, update, app func()) {
	if enterIAP {
		update()
		return
	}
	app()
}
