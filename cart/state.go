// Package cart holds the state shared by the bus-facing real-time context and
// the cooperative context which talks to the storage controller.
//
// Every shared field has exactly one writing context, documented on its
// accessor. Signals from the real-time context are passed through a Mailbox,
// which never blocks the sender.
package cart

import (
	"sync/atomic"
)

const (
	// StagingSize is the size of the base register window.
	StagingSize = 0x1000

	// SaveMemorySize covers four interleaved 256 kbit SRAM banks.
	SaveMemorySize = 0x2_0000

	// MaxTitleLen limits the length of a selected ROM title.
	MaxTitleLen = 255

	uartDepth = 1024
)

// Staging is the hand-off buffer between received command data and the base
// register window. Bytes are kept in console order, halfwords are big endian.
type Staging [StagingSize]byte

//go:nosplit
func (s *Staging) Half(off uint32) uint16 {
	off &= StagingSize - 2
	return uint16(s[off])<<8 | uint16(s[off+1])
}

//go:nosplit
func (s *Staging) SetHalf(off uint32, v uint16) {
	off &= StagingSize - 2
	s[off] = byte(v >> 8)
	s[off+1] = byte(v)
}

// SaveMemory backs the cartridge SRAM domain and is the source and target of
// save backups.
type SaveMemory [SaveMemorySize]byte

//go:nosplit
func (s *SaveMemory) Half(off uint32) uint16 {
	off &= SaveMemorySize - 2
	return uint16(s[off])<<8 | uint16(s[off+1])
}

//go:nosplit
func (s *SaveMemory) SetHalf(off uint32, v uint16) {
	off &= SaveMemorySize - 2
	s[off] = byte(v >> 8)
	s[off+1] = byte(v)
}

// State is created once per process and shared by both contexts.
//
// The staging buffer is written by the console through the dispatcher before a
// request is issued and by the cooperative context while the request is busy.
// Save memory is written by the console and, while a ROM load is busy, by the
// cooperative context restoring a save.
type State struct {
	Staging Staging
	Save    SaveMemory
	Mailbox Mailbox

	// UART carries bytes the console forwards out of band. Written by the
	// real-time context without blocking, drained by the cooperative one.
	UART chan byte

	requested atomic.Uint32 // written by the real-time context
	completed atomic.Uint32 // written by the cooperative context
	saveType  atomic.Uint32 // written by the cooperative context
}

func NewState() *State {
	s := &State{UART: make(chan byte, uartDepth)}
	s.Mailbox.init()
	return s
}

// BeginRequest marks the bus busy and returns the sequence number of the new
// request. Real-time context only.
func (s *State) BeginRequest() uint32 {
	return s.requested.Add(1)
}

// CancelRequest withdraws the request begun last if it was never handed over.
// Real-time context only.
func (s *State) CancelRequest(seq uint32) {
	s.requested.CompareAndSwap(seq, seq-1)
}

// Complete marks request seq as answered. Cooperative context only.
func (s *State) Complete(seq uint32) {
	s.completed.Store(seq)
}

// Busy reports if the latest request is still being served.
func (s *State) Busy() bool {
	return s.requested.Load() != s.completed.Load()
}

// SetSaveType records the negotiated save type. Cooperative context only.
func (s *State) SetSaveType(t SaveType) {
	s.saveType.Store(uint32(t))
}

func (s *State) SaveType() SaveType {
	return SaveType(s.saveType.Load())
}

// Forward queues p to the UART without blocking, dropping what doesn't fit.
// Returns the number of bytes queued.
func (s *State) Forward(p []byte) (n int) {
	for _, b := range p {
		select {
		case s.UART <- b:
			n++
		default:
			return
		}
	}
	return
}
