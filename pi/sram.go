package pi

const (
	sramDirectMask = 0x7fff
	sramBankMask   = 0xc_0000
	sramBankShift  = 3

	// SRAMSize covers four interleaved 256 kbit save banks.
	SRAMSize = (sramDirectMask | sramBankMask>>sramBankShift) + 1
)

// ResolveSRAM maps a bus address in the SRAM domain to a byte offset into the
// save memory. Save banks are selected by address bits 18 and 19, which end up
// right above the 32 KiB bank.
func ResolveSRAM(addr uint32) uint32 {
	return addr&sramDirectMask | (addr&sramBankMask)>>sramBankShift
}
