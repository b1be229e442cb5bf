package pi

// Bus is the bus interface state machine, which latches addresses and strobes
// data. Words fetched with NextWord carry either a latched address, a read
// request or written data, see ClassifyWord.
type Bus interface {
	// NextWord blocks until the console issues the next bus event.
	NextWord() uint32

	// PutWord answers a pending read request.
	PutWord(v uint16)

	// Bounce forces the bus state machine back to waiting for an address
	// latch without answering the current access.
	Bounce()

	// Reset tears down and reinitializes the bus interface.
	Reset()
}

// ResetLine reports the console's cold reset signal.
type ResetLine interface {
	Released() bool
}

// DMA is a single channel transferring halfwords from banked memory into a
// ring of halfwords. Transfers byte swap into console order.
type DMA interface {
	// Arm sets the source halfword index and destination, and starts a
	// transfer of count halfwords.
	Arm(src uint32, dst []uint16, count int)

	// Retrigger starts another transfer of count halfwords, continuing
	// where the previous one stopped.
	Retrigger()

	Busy() bool
}

type WordKind uint8

const (
	Read WordKind = iota
	Write
	NewAddress
)

func (k WordKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "address"
}

// ClassifyWord decodes a word fetched from the bus. Writes carry the written
// halfword in the upper 16 bits and have bit 0 set. A zero word is a read
// request. Anything else is a newly latched address.
func ClassifyWord(w uint32) WordKind {
	if w&1 != 0 {
		return Write
	}
	if w == 0 {
		return Read
	}
	return NewAddress
}

// WriteData returns the halfword carried by a write word.
func WriteData(w uint32) uint16 {
	return uint16(w >> 16)
}

// WriteWord encodes a console write of v as seen on the bus interface.
func WriteWord(v uint16) uint32 {
	return uint32(v)<<16 | 0xffff
}
