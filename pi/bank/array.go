package bank

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoChip      = errors.New("no chip selected")
	ErrOutOfRange  = errors.New("offset out of chip range")
	ErrUnknownChip = errors.New("unknown chip select")
)

// Array is a set of equally sized memory chips shared by both controllers.
// Each controller drives its own chip select through a Port. Chip memory is
// allocated on first write, unwritten chips read as zero.
type Array struct {
	first    int
	capacity int

	mtx   sync.Mutex // guards allocation
	chips [][]byte

	unmap func() error
}

// NewArray returns n chips with chip selects starting at first.
func NewArray(first, n, capacity int) *Array {
	return &Array{
		first:    first,
		capacity: capacity,
		chips:    make([][]byte, n),
	}
}

// NewDefaultArray returns the stock array of DefaultTable.
func NewDefaultArray() *Array {
	return NewArray(FirstChip, Chips, ChipCapacity)
}

func (a *Array) Capacity() int { return a.capacity }

// Close releases a shared array. It's a no-op for arrays held in process
// memory.
func (a *Array) Close() error {
	if a.unmap == nil {
		return nil
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	clear(a.chips)
	err := a.unmap()
	a.unmap = nil
	return err
}

func (a *Array) chip(id int) (int, bool) {
	i := id - a.first
	return i, i >= 0 && i < len(a.chips)
}

// Port is one controller's view of the array.
type Port struct {
	a   *Array
	sel int
}

func (a *Array) Port() *Port {
	return &Port{a: a}
}

// Select asserts chip select id. Zero deselects all chips.
func (p *Port) Select(id int) {
	p.sel = id
}

func (p *Port) Selected() int {
	return p.sel
}

// ReadHalf returns the halfword at halfword index idx of the selected chip in
// console byte order. Reads without a selected chip float high.
func (p *Port) ReadHalf(idx uint32) uint16 {
	i, ok := p.a.chip(p.sel)
	if !ok {
		return 0xffff
	}
	c := p.a.chips[i]
	off := int(idx) * 2
	if off+1 >= len(c) {
		return 0
	}
	return uint16(c[off])<<8 | uint16(c[off+1])
}

// WriteAt implements io.WriterAt for the selected chip. Writes across the end
// of the chip are rejected as a whole.
func (p *Port) WriteAt(b []byte, off int64) (n int, err error) {
	i, ok := p.a.chip(p.sel)
	if !ok {
		if p.sel == 0 {
			return 0, ErrNoChip
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownChip, p.sel)
	}
	if off < 0 || off+int64(len(b)) > int64(p.a.capacity) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, off+int64(len(b)))
	}

	p.a.mtx.Lock()
	if p.a.chips[i] == nil {
		p.a.chips[i] = make([]byte, p.a.capacity)
	}
	c := p.a.chips[i]
	p.a.mtx.Unlock()

	return copy(c[off:], b), nil
}

// ReadAt implements io.ReaderAt for the selected chip.
func (p *Port) ReadAt(b []byte, off int64) (n int, err error) {
	i, ok := p.a.chip(p.sel)
	if !ok {
		return 0, ErrNoChip
	}
	if off < 0 || off >= int64(p.a.capacity) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, off)
	}
	c := p.a.chips[i]
	if c == nil {
		n = min(len(b), p.a.capacity-int(off))
		clear(b[:n])
	} else {
		n = copy(b, c[off:])
	}
	if n < len(b) {
		err = ErrOutOfRange
	}
	return
}
