//go:build !(tinygo && (stm32f4 || stm32f1))

// internal/bank/stm32/stub.go

// Package stm32 binds bank.Bank to the STM32 backup registers
// (RTC_BKPxR on stm32f4, BKP_DRx on stm32f1).
//
// This file provides stub definitions for the regular Go toolchain (staticcheck, go vet).
// The actual implementations are in stm32f4.go and stm32f1.go (TinyGo only).
package stm32

import (
	"errors"

	"github.com/tamzrod/iap-bootstate/internal/bank"
)

// Slots matches the stm32f4 bank (BKP0R..BKP19R).
const Slots = 20

// ErrUnsupported is returned by every operation off-target.
var ErrUnsupported = errors.New("bank stm32: not built for an stm32f4 or stm32f1 target")

// Bank is the RTC backup register bank.
type Bank struct{}

var (
	_ bank.Bank   = Bank{}
	_ bank.Domain = Bank{}
)

func (Bank) ReadRegister(slot uint16) (uint32, error) { return 0, ErrUnsupported }

func (Bank) WriteRegister(slot uint16, v uint32) error { return ErrUnsupported }

func (Bank) EnableBackupDomain() error { return ErrUnsupported }

func (Bank) ClearTamperFlag() error { return ErrUnsupported }
