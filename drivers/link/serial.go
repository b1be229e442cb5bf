//go:build !windows

package link

import (
	"github.com/pkg/term"
)

// DefaultBaud is the baud rate of the inter-controller UART.
const DefaultBaud = 115200

// Serial is a link over a tty, either a real UART or the slave end of a pty.
type Serial struct {
	*term.Term
	depth int
}

// OpenSerial opens the tty name in raw mode.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	t, err := term.Open(name, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	return &Serial{Term: t, depth: DefaultDepth}, nil
}

// Writable reports if the driver's output queue has room for another byte.
func (s *Serial) Writable() bool {
	n, err := s.Buffered()
	return err != nil || n < s.depth
}

func (s *Serial) Close() error {
	s.Restore()
	return s.Term.Close()
}
