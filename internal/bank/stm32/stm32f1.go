//go:build tinygo && stm32f1

// internal/bank/stm32/stm32f1.go

// Package stm32 binds bank.Bank to the STM32F1 BKP data registers.
package stm32

import (
	"device/stm32"
	"errors"
	"runtime/volatile"
	"unsafe"

	"github.com/tamzrod/iap-bootstate/internal/bank"
)

// Slots spans BKP_DR1..BKP_DR10 (medium-density parts). Slot n is BKP_DRn.
const Slots = 11

// Width is the data width of a BKP_DRx register.
const Width = 16

// ErrReservedSlot is returned for slot 0: there is no BKP_DR0.
var ErrReservedSlot = errors.New("bank stm32: slot 0 is reserved on stm32f1 (no BKP_DR0)")

// Bank is the BKP data register bank. The zero value is ready to use
// once EnableBackupDomain has run.
type Bank struct{}

func (Bank) ReadRegister(slot uint16) (uint32, error) {
	if err := check(slot); err != nil {
		return 0, err
	}
	return reg(slot).Get() & 0xFFFF, nil
}

// WriteRegister rejects values wider than 16 bits with *bank.WidthError.
func (Bank) WriteRegister(slot uint16, v uint32) error {
	if err := check(slot); err != nil {
		return err
	}
	if err := bank.CheckWidth(slot, v, Width); err != nil {
		return err
	}
	reg(slot).Set(v)
	return nil
}

// EnableBackupDomain enables the CRC, PWR and BKP clocks and sets PWR_CR.DBP.
func (Bank) EnableBackupDomain() error {
	stm32.RCC.AHBENR.SetBits(stm32.RCC_AHBENR_CRCEN)
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_PWREN | stm32.RCC_APB1ENR_BKPEN)
	stm32.PWR.CR.SetBits(stm32.PWR_CR_DBP)
	return nil
}

// ClearTamperFlag clears the tamper event flag through BKP_CSR.CTE.
func (Bank) ClearTamperFlag() error {
	stm32.BKP.CSR.SetBits(stm32.BKP_CSR_CTE)
	return nil
}

func check(slot uint16) error {
	if slot == 0 {
		return ErrReservedSlot
	}
	return bank.CheckSlot(slot, Slots)
}

// BKP_DR1..DR10 are contiguous, 4 bytes apart.
func reg(slot uint16) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Add(unsafe.Pointer(&stm32.BKP.DR1), 4*uintptr(slot-1)))
}
