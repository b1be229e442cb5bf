package pi

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/debug"
	"github.com/clktmr/pc64/pi/bank"
)

const (
	// DefaultBusSpeed is answered to the handshake read. The high halfword
	// identifies the cartridge, the low halfword holds the bus timings.
	DefaultBusSpeed = 0x8037_ff40

	// DefaultDMASpins is the number of busy polls tolerated before a wait on
	// the DMA channel is counted as an overrun.
	DefaultDMASpins = 256

	ringSize = 4
	ringMask = ringSize - 1
)

type Config struct {
	BusSpeed uint32
	DMASpins int
	Seed     uint32

	// ResetLine is polled before every run if not nil.
	ResetLine ResetLine
}

func (c *Config) setDefaults() {
	if c.BusSpeed == 0 {
		c.BusSpeed = DefaultBusSpeed
	}
	if c.DMASpins <= 0 {
		c.DMASpins = DefaultDMASpins
	}
}

type state uint8

const (
	stateClassify state = iota
	stateAwaitingFirstROMRead
)

// Dispatcher answers bus accesses. All methods except RequestRestart and
// Stats must be called from the goroutine running the dispatcher.
type Dispatcher struct {
	bus   Bus
	dma   DMA
	banks *bank.Resolver
	state *cart.State
	cfg   Config

	ring    [ringSize]uint16
	ringIdx uint32

	regs controlRegs
	rand xorshift

	restart atomic.Bool
	stats   counters
}

func NewDispatcher(bus Bus, dma DMA, banks *bank.Resolver, s *cart.State, cfg Config) *Dispatcher {
	debug.Assert(bus != nil && dma != nil, "missing bus collaborator")
	cfg.setDefaults()
	d := &Dispatcher{
		bus:   bus,
		dma:   dma,
		banks: banks,
		state: s,
		cfg:   cfg,
	}
	d.Reset()
	return d
}

// Reset returns the dispatcher to power on state. Shared state is kept.
func (d *Dispatcher) Reset() {
	d.banks.Reset()
	d.ringIdx = 0
	d.regs.reset()
	d.rand.Seed(d.cfg.Seed)
}

// RequestRestart makes Run return after the current access. Safe to call from
// any goroutine.
func (d *Dispatcher) RequestRestart() {
	d.restart.Store(true)
}

func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}

// Loop runs the dispatcher until ctx is done, resetting the bus interface
// whenever a restart was requested. It locks the calling goroutine to its OS
// thread for the whole time.
func (d *Dispatcher) Loop(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	stop := context.AfterFunc(ctx, d.RequestRestart)
	defer stop()

	for {
		d.restart.Store(false)
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.waitReset(ctx) {
			return ctx.Err()
		}
		d.Run()
		d.bus.Reset()
		d.Reset()
	}
}

func (d *Dispatcher) waitReset(ctx context.Context) bool {
	for d.cfg.ResetLine != nil && !d.cfg.ResetLine.Released() {
		if ctx.Err() != nil {
			return false
		}
		runtime.Gosched()
	}
	return true
}

// Run serves bus accesses until a restart is requested. The restart flag is
// checked once per latched address.
func (d *Dispatcher) Run() {
	st := stateClassify
	w := d.bus.NextWord()
	for !d.restart.Load() {
		switch st {
		case stateAwaitingFirstROMRead:
			w, st = d.streamROM(w), stateClassify
		default:
			w, st = d.dispatch(w)
		}
	}
}

// dispatch serves all accesses following the address latch w and returns the
// first word which isn't part of them.
func (d *Dispatcher) dispatch(w uint32) (uint32, state) {
	if ClassifyWord(w) != NewAddress {
		d.bounce()
		return d.bus.NextWord(), stateClassify
	}

	addr := w
	dom := Classify(addr)
	d.stats.accesses[dom].Add(1)

	switch dom {
	case ConfigHandshake:
		return d.serveHandshake()
	case CartridgeSRAM:
		return d.serveSRAM(addr), stateClassify
	case CartridgeROM:
		d.armROM(addr)
		return d.streamROM(d.bus.NextWord()), stateClassify
	case RegisterBase:
		return d.serveBase(addr), stateClassify
	case RegisterControl:
		return d.serveControl(addr), stateClassify
	case RegisterRandom:
		return d.serveRandom(), stateClassify
	}

	// Leave the access to whoever else is on the bus.
	if w = d.bus.NextWord(); ClassifyWord(w) == NewAddress {
		return w, stateClassify
	}
	d.bounce()
	return d.bus.NextWord(), stateClassify
}

func (d *Dispatcher) bounce() {
	d.stats.bounces.Add(1)
	d.bus.Bounce()
}

// serveHandshake answers the bus speed word and prepares the ROM data which
// follows it, as the console reads on without latching a new address.
func (d *Dispatcher) serveHandshake() (uint32, state) {
	for i := range 2 {
		w := d.bus.NextWord()
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(uint16(d.cfg.BusSpeed >> (16 - 16*i)))
		case NewAddress:
			return w, stateClassify
		}
	}

	d.armROM(HandshakeAddr + 4)
	w := d.bus.NextWord()
	if ClassifyWord(w) == NewAddress {
		return w, stateClassify
	}
	return w, stateAwaitingFirstROMRead
}

// armROM selects the bank of addr and fills the prefetch ring two halfwords
// deep.
func (d *Dispatcher) armROM(addr uint32) {
	d.banks.Select(addr)
	d.ringIdx = 0
	d.spin()
	d.dma.Arm(d.banks.Offset(addr)>>1, d.ring[:], 1)
	d.spin()
	d.dma.Retrigger()
}

func (d *Dispatcher) popROM() uint16 {
	d.spin()
	v := d.ring[d.ringIdx&ringMask]
	d.ringIdx++
	d.dma.Retrigger()
	return v
}

// spin waits for the DMA channel. The console can't be stalled, so a slow
// transfer is only counted.
func (d *Dispatcher) spin() {
	for n := 0; d.dma.Busy(); n++ {
		if n == d.cfg.DMASpins {
			d.stats.overruns.Add(1)
		}
	}
}

// streamROM serves sequential ROM accesses starting with word w. Writes are
// acknowledged and discarded, but still advance the prefetch.
func (d *Dispatcher) streamROM(w uint32) uint32 {
	for {
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(d.popROM())
		case Write:
			d.popROM()
		default:
			return w
		}
		w = d.bus.NextWord()
	}
}

func (d *Dispatcher) serveSRAM(addr uint32) uint32 {
	for {
		w := d.bus.NextWord()
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(d.state.Save.Half(ResolveSRAM(addr)))
		case Write:
			d.state.Save.SetHalf(ResolveSRAM(addr), WriteData(w))
		default:
			return w
		}
		addr += 2
	}
}

func (d *Dispatcher) serveBase(addr uint32) uint32 {
	off := addr - BaseStart
	for {
		w := d.bus.NextWord()
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(d.state.Staging.Half(off))
		case Write:
			d.state.Staging.SetHalf(off, WriteData(w))
		default:
			return w
		}
		off += 2
	}
}

func (d *Dispatcher) serveControl(addr uint32) uint32 {
	off := addr - ControlStart
	for {
		w := d.bus.NextWord()
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(d.readControl(off))
		case Write:
			d.writeControl(off, WriteData(w))
		default:
			return w
		}
		off = (off + 2) & (ControlSize - 1)
	}
}

func (d *Dispatcher) serveRandom() uint32 {
	for {
		w := d.bus.NextWord()
		switch ClassifyWord(w) {
		case Read:
			d.bus.PutWord(d.rand.Next())
		case Write:
		default:
			return w
		}
	}
}
