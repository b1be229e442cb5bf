// Package bank spreads a linear ROM image over several external memory chips.
//
// The Resolver owns the currently selected chip of the bus-facing controller.
// Selecting a chip is slow, so it is done once per latched address and only if
// the address falls into a different chip than the previous one.
package bank

import (
	"github.com/clktmr/pc64/debug"
)

const (
	// ChipCapacity is the size of a single PSRAM chip.
	ChipCapacity = 8 << 20

	// FirstChip is the chip select of the first chip holding ROM data. Chip
	// select 0 disables all chips.
	FirstChip = 1

	// Chips is the number of populated chips.
	Chips = 8

	// offsetMask limits offsets to the address lines of a chip.
	offsetMask = 0xff_ffff

	romBase = 0x1000_0000
)

// Bank maps a chip select to the byte offset of its slice of the ROM image.
type Bank struct {
	ID     int
	Offset uint32
}

// Table is ordered by strictly increasing offsets.
type Table []Bank

// Linear returns a table of n chips of equal capacity, starting at chip
// select first.
func Linear(first, n int, capacity uint32) Table {
	t := make(Table, n)
	for i := range t {
		t[i] = Bank{first + i, uint32(i) * capacity}
	}
	return t
}

// DefaultTable is the table of the stock memory array.
var DefaultTable = Linear(FirstChip, Chips, ChipCapacity)

// Index returns the index of the bank holding the byte at offset off of the
// ROM image. Offsets beyond the table end up in the last bank.
func (t Table) Index(off uint32) int {
	i := 0
	for i+1 < len(t) && t[i+1].Offset <= off {
		i++
	}
	return i
}

// Selector switches the active chip of a memory array.
type Selector interface {
	Select(id int)
}

// Resolver maps ROM domain addresses to banks and tracks the active one.
type Resolver struct {
	table   Table
	sel     Selector
	current int
}

func NewResolver(t Table, sel Selector) *Resolver {
	debug.Assert(len(t) > 0, "empty bank table")
	if debug.Enabled {
		for i := 1; i < len(t); i++ {
			debug.Assertf(t[i].Offset > t[i-1].Offset, "bank %d: offset %#x not increasing", i, t[i].Offset)
		}
	}
	r := &Resolver{table: t, sel: sel}
	r.Reset()
	return r
}

// Reset selects the first bank.
func (r *Resolver) Reset() {
	r.current = 0
	r.sel.Select(r.table[0].ID)
}

// Resolve returns the bank index and chip offset of a ROM domain address
// without changing the selected bank.
func (r *Resolver) Resolve(addr uint32) (bank int, offset uint32) {
	bank = r.table.Index(addr - romBase)
	return bank, (addr - r.table[bank].Offset) & offsetMask
}

// Select makes the bank holding addr the active one and asserts its chip
// select if it changed. It's the only way to change the active bank.
func (r *Resolver) Select(addr uint32) (bank int) {
	bank = r.table.Index(addr - romBase)
	if bank != r.current {
		r.current = bank
		r.sel.Select(r.table[bank].ID)
	}
	return
}

// Current returns the index of the active bank.
func (r *Resolver) Current() int {
	return r.current
}

// Offset returns the offset of addr into the chip of the active bank.
func (r *Resolver) Offset(addr uint32) uint32 {
	return (addr - r.table[r.current].Offset) & offsetMask
}

func (r *Resolver) Table() Table {
	return r.table
}
