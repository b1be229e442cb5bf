package protocol

import (
	"context"
	"io"
	"runtime"
	"sync"
)

// Port is a transmitter which can tell if it accepts another byte without
// blocking.
type Port interface {
	io.Writer
	Writable() bool
}

// DefaultSpins is the number of polls of an unwritable port before the writer
// yields the processor.
const DefaultSpins = 64

// Writer sends frames and raw data byte by byte, polling the port before each
// byte. A frame is never interleaved with another write. Writer is safe for
// concurrent use.
type Writer struct {
	port  Port
	spins int

	mtx sync.Mutex
	b   [1]byte
	buf []byte
}

func NewWriter(port Port) *Writer {
	return &Writer{port: port, spins: DefaultSpins}
}

// WriteFrame sends a frame of op carrying payload.
func (w *Writer) WriteFrame(ctx context.Context, op Op, payload []byte) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	var err error
	w.buf, err = AppendFrame(w.buf[:0], op, payload)
	if err != nil {
		return err
	}
	return w.send(ctx, w.buf)
}

// WriteRaw sends p without framing.
func (w *Writer) WriteRaw(ctx context.Context, p []byte) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	return w.send(ctx, p)
}

func (w *Writer) send(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, c := range p {
		if err := w.wait(ctx); err != nil {
			return err
		}
		w.b[0] = c
		if _, err := w.port.Write(w.b[:]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) wait(ctx context.Context) error {
	for n := 0; !w.port.Writable(); n++ {
		if n < w.spins {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
		n = 0
	}
	return nil
}
