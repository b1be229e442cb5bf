// Package dma models the single DMA channel which streams halfwords from the
// banked memory array into the dispatcher's prefetch ring.
package dma

// Source is a memory port addressed in halfwords, e.g. a bank.Port.
type Source interface {
	ReadHalf(idx uint32) uint16
}

// Channel implements pi.DMA. A transfer completes immediately, but the
// channel reports busy for the configured number of polls after every
// trigger, like a transfer in flight would.
type Channel struct {
	src     Source
	latency int

	next  uint32
	dst   []uint16
	pos   int
	count int

	pending   int
	transfers uint64
}

func New(src Source, latency int) *Channel {
	return &Channel{src: src, latency: latency}
}

// Arm starts a transfer of count halfwords from halfword index src into dst.
// The destination wraps around.
func (c *Channel) Arm(src uint32, dst []uint16, count int) {
	c.next = src
	c.dst = dst
	c.pos = 0
	c.count = count
	c.transfer()
}

// Retrigger continues the last transfer with another count halfwords.
func (c *Channel) Retrigger() {
	if c.dst == nil {
		return
	}
	c.transfer()
}

func (c *Channel) Busy() bool {
	if c.pending > 0 {
		c.pending--
		return true
	}
	return false
}

// Transfers returns the number of halfwords transferred since creation.
func (c *Channel) Transfers() uint64 {
	return c.transfers
}

func (c *Channel) transfer() {
	for range c.count {
		c.dst[c.pos] = c.src.ReadHalf(c.next)
		c.next++
		c.pos++
		if c.pos == len(c.dst) {
			c.pos = 0
		}
	}
	c.transfers += uint64(c.count)
	c.pending = c.latency
}
