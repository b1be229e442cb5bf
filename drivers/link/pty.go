//go:build !windows

package link

import (
	"github.com/aymanbagabas/go-pty"
)

// PTY is the master end of a pseudo terminal. The other controller attaches
// to the tty returned by Name, e.g. with OpenSerial.
type PTY struct {
	pty.Pty

	// Holding the slave open in raw mode keeps the line discipline from
	// echoing until the other controller attaches, and from hanging up when
	// it detaches.
	slave *Serial
}

func NewPTY() (*PTY, error) {
	p, err := pty.New()
	if err != nil {
		return nil, err
	}
	slave, err := OpenSerial(p.Name(), DefaultBaud)
	if err != nil {
		p.Close()
		return nil, err
	}
	return &PTY{Pty: p, slave: slave}, nil
}

// Writable always reports true, a full pty buffer blocks the write.
func (p *PTY) Writable() bool {
	return true
}

func (p *PTY) Close() error {
	p.slave.Close()
	return p.Pty.Close()
}
