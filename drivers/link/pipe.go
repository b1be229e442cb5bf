package link

import (
	"io"
	"sync"
)

// DefaultDepth matches the hardware UART FIFO.
const DefaultDepth = 32

// fifo is a bounded byte queue with blocking reads and writes.
type fifo struct {
	mtx    sync.Mutex
	cond   sync.Cond
	buf    []byte
	r, n   int
	closed bool
}

func newFIFO(depth int) *fifo {
	f := &fifo{buf: make([]byte, depth)}
	f.cond.L = &f.mtx
	return f
}

func (f *fifo) read(p []byte) (n int, err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for f.n == 0 {
		if f.closed {
			return 0, io.EOF
		}
		f.cond.Wait()
	}
	for n < len(p) && f.n > 0 {
		p[n] = f.buf[f.r]
		f.r = (f.r + 1) % len(f.buf)
		f.n--
		n++
	}
	f.cond.Broadcast()
	return n, nil
}

func (f *fifo) write(p []byte) (n int, err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for n < len(p) {
		for f.n == len(f.buf) && !f.closed {
			f.cond.Wait()
		}
		if f.closed {
			return n, ErrClosed
		}
		for n < len(p) && f.n < len(f.buf) {
			f.buf[(f.r+f.n)%len(f.buf)] = p[n]
			f.n++
			n++
		}
		f.cond.Broadcast()
	}
	return n, nil
}

func (f *fifo) writable() bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.closed || f.n < len(f.buf)
}

func (f *fifo) close() {
	f.mtx.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mtx.Unlock()
}

type pipeEnd struct {
	rx, tx *fifo
}

func (p *pipeEnd) Read(b []byte) (int, error)  { return p.rx.read(b) }
func (p *pipeEnd) Write(b []byte) (int, error) { return p.tx.write(b) }
func (p *pipeEnd) Writable() bool              { return p.tx.writable() }

// Close closes both directions. Pending reads on either end return io.EOF
// once the received bytes are consumed.
func (p *pipeEnd) Close() error {
	p.rx.close()
	p.tx.close()
	return nil
}

// Pipe returns the two ends of an in-memory link. Each direction buffers depth
// bytes.
func Pipe(depth int) (a, b Port) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	ab, ba := newFIFO(depth), newFIFO(depth)
	return &pipeEnd{rx: ba, tx: ab}, &pipeEnd{rx: ab, tx: ba}
}
