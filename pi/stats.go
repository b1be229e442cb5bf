package pi

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Stats is a snapshot of the dispatcher's counters.
type Stats struct {
	Accesses [len(domainNames)]uint64 // latched addresses per domain
	Bounces  uint64                   // accesses left for other peripherals
	Requests uint64                   // storage requests handed over
	Dropped  uint64                   // storage requests lost to a full mailbox
	Overruns uint64                   // DMA waits exceeding the spin budget
}

func (s Stats) String() string {
	var b strings.Builder
	for d, n := range s.Accesses {
		if n != 0 {
			fmt.Fprintf(&b, "%v=%d ", Domain(d), n)
		}
	}
	fmt.Fprintf(&b, "bounces=%d requests=%d dropped=%d overruns=%d",
		s.Bounces, s.Requests, s.Dropped, s.Overruns)
	return b.String()
}

// counters are written by the real-time context only and may be read from
// anywhere.
type counters struct {
	accesses [len(domainNames)]atomic.Uint64
	bounces  atomic.Uint64
	requests atomic.Uint64
	dropped  atomic.Uint64
	overruns atomic.Uint64
}

func (c *counters) snapshot() (s Stats) {
	for i := range c.accesses {
		s.Accesses[i] = c.accesses[i].Load()
	}
	s.Bounces = c.bounces.Load()
	s.Requests = c.requests.Load()
	s.Dropped = c.dropped.Load()
	s.Overruns = c.overruns.Load()
	return
}
