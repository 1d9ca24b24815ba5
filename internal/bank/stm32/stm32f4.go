//go:build tinygo && stm32f4

// internal/bank/stm32/stm32f4.go

// Package stm32 binds bank.Bank to the STM32F4 RTC backup registers.
package stm32

import (
	"device/stm32"
	"runtime/volatile"
	"unsafe"

	"github.com/tamzrod/iap-bootstate/internal/bank"
)

// Slots is the number of RTC backup registers (BKP0R..BKP19R).
const Slots = 20

// Bank is the RTC backup register bank. The zero value is ready to use
// once EnableBackupDomain has run.
type Bank struct{}

func (Bank) ReadRegister(slot uint16) (uint32, error) {
	if err := bank.CheckSlot(slot, Slots); err != nil {
		return 0, err
	}
	return reg(slot).Get(), nil
}

func (Bank) WriteRegister(slot uint16, v uint32) error {
	if err := bank.CheckSlot(slot, Slots); err != nil {
		return err
	}
	reg(slot).Set(v)
	return nil
}

// EnableBackupDomain enables the CRC, backup SRAM and PWR clocks and sets PWR_CR.DBP.
func (Bank) EnableBackupDomain() error {
	stm32.RCC.AHB1ENR.SetBits(stm32.RCC_AHB1ENR_CRCEN | stm32.RCC_AHB1ENR_BKPSRAMEN)
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_PWREN)
	stm32.PWR.CR.SetBits(stm32.PWR_CR_DBP)
	return nil
}

// ClearTamperFlag clears RTC_ISR.TAMP1F. ISR flags are rc_w0, INIT is preserved.
func (Bank) ClearTamperFlag() error {
	keep := stm32.RTC.ISR.Get() & stm32.RTC_ISR_INIT
	stm32.RTC.ISR.Set((^uint32(stm32.RTC_ISR_TAMP1F|stm32.RTC_ISR_INIT))&0xFFFF | keep)
	return nil
}

// BKPnR registers are contiguous, 4 bytes apart.
func reg(slot uint16) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Add(unsafe.Pointer(&stm32.RTC.BKP0R), 4*uintptr(slot)))
}
