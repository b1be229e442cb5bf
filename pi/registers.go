package pi

import (
	"github.com/clktmr/pc64/cart"
)

// Byte offsets of the 32-bit registers in the control window. The high
// halfword is at +0, the low halfword at +2.
const (
	RegMagic     = 0x00
	RegUART      = 0x04
	RegSeed      = 0x08
	RegBusy      = 0x0c
	RegSectorHi  = 0x10
	RegSectorLo  = 0x14
	RegCount     = 0x18
	RegTitleLen  = 0x1c
	RegSaveType  = 0x20
	numRegisters = RegSaveType/4 + 1

	Magic = 0xdead_6400

	uartCountMask = 0xfff
)

// controlRegs holds the latches of the control window. Owned by the
// dispatcher.
type controlRegs struct {
	latch [numRegisters]uint32
	req   cart.SDRequest
	msg   cart.Message
}

func (r *controlRegs) reset() {
	r.latch = [numRegisters]uint32{}
	r.req = cart.SDRequest{}
}

// readControl returns the halfword at offset off of the control window.
func (d *Dispatcher) readControl(off uint32) uint16 {
	var v uint32
	switch reg := off &^ 3; reg {
	case RegMagic:
		v = Magic
	case RegSeed:
		v = d.rand.seed
	case RegBusy:
		if d.state.Busy() {
			v = 1
		}
	case RegSectorHi, RegSectorLo:
		return d.regs.req.SectorPart(int(off-RegSectorHi) >> 1)
	case RegCount:
		return d.regs.req.CountPart(int(off-RegCount) >> 1)
	case RegSaveType:
		v = uint32(d.state.SaveType())
	default:
		if int(reg>>2) < numRegisters {
			v = d.regs.latch[reg>>2]
		}
	}
	if off&2 == 0 {
		return uint16(v >> 16)
	}
	return uint16(v)
}

// writeControl latches a halfword written to offset off of the control window.
// The write of the low halfword completes a register.
func (d *Dispatcher) writeControl(off uint32, v uint16) {
	reg := off &^ 3
	switch reg {
	case RegSectorHi, RegSectorLo:
		part := int(off-RegSectorHi) >> 1
		d.regs.req.SetSectorPart(part, v)
		if part == 3 {
			d.requestSector()
		}
		return
	case RegCount:
		d.regs.req.SetCountPart(int(off-RegCount)>>1, v)
		return
	}

	idx := reg >> 2
	if int(idx) >= numRegisters {
		return
	}
	l := &d.regs.latch[idx]
	if off&2 == 0 {
		*l = *l&0xffff | uint32(v)<<16
		return
	}
	*l = *l&^0xffff | uint32(v)

	switch reg {
	case RegUART:
		n := *l & uartCountMask
		d.state.Forward(d.state.Staging[:n])
	case RegSeed:
		d.rand.Seed(*l)
	case RegTitleLen:
		d.requestROM(*l)
	}
}

func (d *Dispatcher) requestSector() {
	m := &d.regs.msg
	m.Kind = cart.ReadSector
	m.Request = d.regs.req
	m.TitleLen = 0
	d.push(m)
}

func (d *Dispatcher) requestROM(n uint32) {
	n = min(n, cart.MaxTitleLen)
	m := &d.regs.msg
	m.Kind = cart.LoadROM
	m.Request = cart.SDRequest{}
	m.TitleLen = uint8(copy(m.Title[:], d.state.Staging[:n]))
	d.push(m)
}

// push hands a request to the cooperative context. If the mailbox is still
// occupied the request is withdrawn and the bus never turns busy for it.
func (d *Dispatcher) push(m *cart.Message) {
	m.Seq = d.state.BeginRequest()
	if !d.state.Mailbox.Push(m) {
		d.state.CancelRequest(m.Seq)
		d.stats.dropped.Add(1)
		return
	}
	d.stats.requests.Add(1)
}
