// internal/layout/layout.go
package layout

import "fmt"

// Backup register layout constants.
// These values define the contract with the companion bootloader build
// and MUST match it exactly.

// ---- BANK GEOMETRY ----

// DefaultBankSlots is the number of RTC backup registers on STM32F4 (DR0..DR19).
const DefaultBankSlots = 20

// CommandSlots is the fixed number of boot command slots.
const CommandSlots = 3

// ---- SLOT INDICES ----

// SlotMagic1 holds the first magic word of the IAP request.
const SlotMagic1 = 1

// SlotMagic2 holds the second magic word of the IAP request.
const SlotMagic2 = 2

// SlotBootCount holds the boot counter.
const SlotBootCount = 3

// SlotCommandStart is the first boot command slot.
// Command slots are contiguous in the default layout.
const SlotCommandStart = 4

// ---- MAGIC WORDS ----

// MagicWord1 is written to SlotMagic1 to arm a request.
const MagicWord1 uint16 = 0x1122

// MagicWord2 is written to SlotMagic2 to arm a request.
const MagicWord2 uint16 = 0xAA55

// Layout maps every boot-state role to a backup register slot.
type Layout struct {
	Magic1    uint16
	Magic2    uint16
	BootCount uint16
	Commands  [CommandSlots]uint16
	BankSlots uint16
}

// Magic is the pair of words that arms a request.
type Magic struct {
	Word1 uint16
	Word2 uint16
}

// Default returns the PiOS STM32F4 slot map.
func Default() Layout {
	return Layout{
		Magic1:    SlotMagic1,
		Magic2:    SlotMagic2,
		BootCount: SlotBootCount,
		Commands: [CommandSlots]uint16{
			SlotCommandStart,
			SlotCommandStart + 1,
			SlotCommandStart + 2,
		},
		BankSlots: DefaultBankSlots,
	}
}

// DefaultMagic returns the magic pair shared with the bootloader.
func DefaultMagic() Magic {
	return Magic{Word1: MagicWord1, Word2: MagicWord2}
}

// Validate checks that every role fits the bank and no two roles share a slot.
// It MUST NOT mutate the layout.
func (l Layout) Validate() error {
	if l.BankSlots == 0 {
		return fmt.Errorf("layout: bank_slots must be > 0")
	}

	owner := make(map[uint16]string)
	for _, r := range l.roles() {
		if r.slot >= l.BankSlots {
			return fmt.Errorf(
				"layout: %s slot %d out of range: bank has %d slots",
				r.name,
				r.slot,
				l.BankSlots,
			)
		}
		if prev, exists := owner[r.slot]; exists {
			return fmt.Errorf(
				"layout: slot collision: slot %d used by %s and %s",
				r.slot,
				prev,
				r.name,
			)
		}
		owner[r.slot] = r.name
	}

	return nil
}

// Validate rejects magic pairs that cannot be told apart from a cleared pair.
func (m Magic) Validate() error {
	if m.Word1 == 0 || m.Word2 == 0 {
		return fmt.Errorf("magic: words must be non-zero (got 0x%04X, 0x%04X)", m.Word1, m.Word2)
	}
	return nil
}

type role struct {
	name string
	slot uint16
}

func (l Layout) roles() []role {
	out := []role{
		{name: "magic_reg_1", slot: l.Magic1},
		{name: "magic_reg_2", slot: l.Magic2},
		{name: "boot_count", slot: l.BootCount},
	}
	for i, s := range l.Commands {
		out = append(out, role{name: fmt.Sprintf("command[%d]", i), slot: s})
	}
	return out
}
