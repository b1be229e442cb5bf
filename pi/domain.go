// Package pi serves the cartridge side of the console's parallel interface.
//
// The Dispatcher sits in a tight loop fetching words from the bus interface.
// Every latched address is classified into a Domain, and the domain's serving
// policy answers reads and consumes writes until the console latches the next
// address. Addresses outside the known domains are never answered, so a second
// peripheral on the bus can respond instead.
package pi

import "fmt"

// Range is an inclusive range of PI bus addresses.
type Range struct {
	Start, End uint32
}

func (r Range) Contains(addr uint32) bool {
	return addr >= r.Start && addr <= r.End
}

// Offset returns the distance of addr from the start of the range. It does not
// check if addr is inside the range.
func (r Range) Offset(addr uint32) uint32 {
	return addr - r.Start
}

func (r Range) Len() uint32 {
	return r.End - r.Start + 1
}

type Domain uint8

const (
	Unhandled Domain = iota
	ConfigHandshake
	CartridgeSRAM
	CartridgeROM
	RegisterBase
	RegisterControl
	RegisterRandom
)

var domainNames = [...]string{
	Unhandled:       "unhandled",
	ConfigHandshake: "handshake",
	CartridgeSRAM:   "sram",
	CartridgeROM:    "rom",
	RegisterBase:    "base",
	RegisterControl: "control",
	RegisterRandom:  "random",
}

func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return fmt.Sprintf("domain(%d)", uint8(d))
}

const (
	HandshakeAddr = 0x1000_0000

	SRAMStart = 0x0800_0000
	SRAMEnd   = 0x0fff_ffff

	ROMStart = 0x1000_0000
	ROMEnd   = 0x1fbf_ffff

	BaseStart = 0x8100_0000
	BaseSize  = 0x1000

	RandomStart = 0x8200_0000
	RandomSize  = 0x1_0000

	ControlStart = 0x8300_0000
	ControlSize  = 0x800
)

// Ranges lists the address range of every handled domain, Ranges[Unhandled] is
// unused. The handshake address is carved out of the ROM range so that all
// ranges are disjoint.
var Ranges = [...]Range{
	ConfigHandshake: {HandshakeAddr, HandshakeAddr},
	CartridgeSRAM:   {SRAMStart, SRAMEnd},
	CartridgeROM:    {HandshakeAddr + 1, ROMEnd},
	RegisterBase:    {BaseStart, BaseStart + BaseSize - 1},
	RegisterControl: {ControlStart, ControlStart + ControlSize - 1},
	RegisterRandom:  {RandomStart, RandomStart + RandomSize - 1},
}

// Classify returns the domain of a latched address. The checks are ordered by
// how little stall the console tolerates in each domain.
func Classify(addr uint32) Domain {
	switch {
	case addr == HandshakeAddr:
		return ConfigHandshake
	case addr >= SRAMStart && addr <= SRAMEnd:
		return CartridgeSRAM
	case addr > HandshakeAddr && addr <= ROMEnd:
		return CartridgeROM
	case addr >= BaseStart && addr < BaseStart+BaseSize:
		return RegisterBase
	case addr >= ControlStart && addr < ControlStart+ControlSize:
		return RegisterControl
	case addr >= RandomStart && addr < RandomStart+RandomSize:
		return RegisterRandom
	}
	return Unhandled
}
