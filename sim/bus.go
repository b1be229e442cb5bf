// Package sim models the console side of the cartridge bus on the host. It
// lets the dispatcher, the bridge and the SD service run unmodified against a
// scripted console.
package sim

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/clktmr/pc64/pi"
)

var ErrClosed = errors.New("bus closed")

// IdleAddr is fetched by the dispatcher after the bus was closed. It's outside
// of all cartridge domains.
const IdleAddr = 0x0500_0000

// Bus connects a Console to a dispatcher. Writes and address latches don't
// return before the dispatcher asked for the next word, so a console access
// completes only after the cartridge has processed it.
type Bus struct {
	words chan uint32
	reads chan uint16
	acks  chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	bounced atomic.Bool

	// dispatcher side
	ackPending  bool
	readPending bool
	addr        uint32
	offset      uint32
}

func NewBus() *Bus {
	return &Bus{
		words: make(chan uint32),
		reads: make(chan uint16),
		acks:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Close unblocks both sides. The dispatcher then fetches IdleAddr forever.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bus) NextWord() uint32 {
	b.ack()
	select {
	case w := <-b.words:
		switch pi.ClassifyWord(w) {
		case pi.Read:
			b.readPending = true
		case pi.Write:
			b.ackPending = true
			b.offset += 2
		case pi.NewAddress:
			b.ackPending = true
			b.addr, b.offset = w, 0
		}
		return w
	case <-b.done:
		return IdleAddr
	}
}

func (b *Bus) ack() {
	if !b.ackPending {
		return
	}
	b.ackPending = false
	select {
	case b.acks <- struct{}{}:
	case <-b.done:
	}
}

func (b *Bus) PutWord(v uint16) {
	b.readPending = false
	b.offset += 2
	select {
	case b.reads <- v:
	case <-b.done:
	}
}

// Bounce leaves the current access to another peripheral. There is none, so
// pending and further reads until the next address latch see the open bus.
func (b *Bus) Bounce() {
	b.bounced.Store(true)
	b.ack()
	if b.readPending {
		b.PutWord(openBus(b.addr + b.offset))
	}
}

// Reset releases the console from an access the dispatcher didn't finish.
func (b *Bus) Reset() {
	b.Bounce()
}

// openBus is what the console reads if no peripheral answers: the lower half
// of the address still on the bus.
func openBus(addr uint32) uint16 {
	return uint16(addr)
}

// console side

func (b *Bus) latch(addr uint32) error {
	b.bounced.Store(false)
	return b.send(addr)
}

func (b *Bus) send(w uint32) error {
	select {
	case b.words <- w:
	case <-b.done:
		return ErrClosed
	}
	select {
	case <-b.acks:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

func (b *Bus) write(v uint16) error {
	if b.bounced.Load() {
		return nil
	}
	return b.send(pi.WriteWord(v))
}

func (b *Bus) read(addr uint32) (uint16, error) {
	if b.bounced.Load() {
		return openBus(addr), nil
	}
	select {
	case b.words <- 0:
	case <-b.done:
		return 0, ErrClosed
	}
	select {
	case v := <-b.reads:
		return v, nil
	case <-b.done:
		return 0, ErrClosed
	}
}
