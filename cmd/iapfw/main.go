//go:build tinygo && (stm32f4 || stm32f1)

// cmd/iapfw/main.go
package main

import (
	"log/slog"
	"machine"
	"time"

	"github.com/tamzrod/iap-bootstate/internal/bank/stm32"
	"github.com/tamzrod/iap-bootstate/internal/iap"
	"github.com/tamzrod/iap-bootstate/internal/layout"
)

var logger = slog.New(slog.NewTextHandler(machine.Serial, nil))

func main() {
	l := layout.Default()
	l.BankSlots = stm32.Slots

	store, err := iap.New(stm32.Bank{}, iap.WithLayout(l), iap.WithLogger(logger))
	if err != nil {
		logger.Error("store build failed", "err", err)
		halt()
	}

	enterIAP, err := boot(store, logger)
	if err != nil {
		logger.Error("boot handshake failed", "err", err)
		halt()
	}

	handoff(enterIAP, enterUpdate, jumpToApp)
}

// enterUpdate is where the bootloader's update loop takes over.
// The loop itself belongs to the bootloader, not to this handshake.
func enterUpdate() {
	logger.Info("update mode: waiting for host")
	halt()
}

// jumpToApp is where the bootloader hands the core to the application image.
// The vector-table jump belongs to the bootloader, not to this handshake.
func jumpToApp() {
	logger.Info("starting application")
	halt()
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
