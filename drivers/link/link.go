// Package link provides byte oriented duplex transports between the two
// controllers.
package link

import (
	"context"
	"errors"
	"io"
)

var ErrClosed = errors.New("link closed")

// Port is one end of a link. Writable reports if the transmitter accepts
// another byte without blocking.
type Port interface {
	io.ReadWriteCloser
	Writable() bool
}

// Receiver reads from a port in its own goroutine and delivers the received
// chunks on C. C is closed once reading fails or the context is done.
type Receiver struct {
	C <-chan []byte

	err  error
	done chan struct{}
}

// Receive starts reading r in chunks of up to size bytes.
func Receive(ctx context.Context, r io.Reader, size int) *Receiver {
	c := make(chan []byte)
	rx := &Receiver{C: c, done: make(chan struct{})}
	go func() {
		defer close(rx.done)
		defer close(c)
		for {
			buf := make([]byte, size)
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case c <- buf[:n]:
				case <-ctx.Done():
					rx.err = ctx.Err()
					return
				}
			}
			if err != nil {
				rx.err = err
				return
			}
		}
	}()
	return rx
}

// Err returns the error which stopped the receiver. Only valid after C was
// closed.
func (rx *Receiver) Err() error {
	<-rx.done
	return rx.err
}
