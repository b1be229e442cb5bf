package protocol

// State of the Parser.
type State uint8

const (
	Idle State = iota
	SawFirstSync
	ReadingHeader
	ReadingPayload
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SawFirstSync:
		return "sync"
	case ReadingHeader:
		return "header"
	case ReadingPayload:
		return "payload"
	}
	return "invalid"
}

// HandlerFunc is called with every completely received frame. The payload is
// only valid during the call and is truncated to the capacity of the
// destination buffer.
type HandlerFunc func(op Op, payload []byte)

// RouteFunc selects the destination buffer of a frame's payload once its
// header was received. Returning nil selects the parser's own buffer.
type RouteFunc func(op Op, length int) []byte

// Parser reassembles frames from a byte stream. Bytes outside of frames are
// skipped. A Parser is not safe for concurrent use.
type Parser struct {
	Handler HandlerFunc
	Route   RouteFunc

	buf []byte
	dst []byte

	state  State
	header [HeaderLen - 2]byte
	hidx   int
	length int
	idx    int

	frames    uint64
	skipped   uint64
	truncated uint64
}

// NewParser returns a parser receiving payloads into buf.
func NewParser(buf []byte, h HandlerFunc) *Parser {
	return &Parser{buf: buf, Handler: h}
}

func (p *Parser) State() State { return p.state }

// Stats returns the number of frames dispatched, bytes skipped while looking
// for a frame and payload bytes dropped for not fitting the destination.
func (p *Parser) Stats() (frames, skipped, truncated uint64) {
	return p.frames, p.skipped, p.truncated
}

// Reset drops a partially received frame.
func (p *Parser) Reset() {
	p.state = Idle
	p.hidx = 0
	p.length = 0
	p.idx = 0
	p.dst = nil
}

// Write feeds all bytes of b into the parser. It never fails.
func (p *Parser) Write(b []byte) (n int, err error) {
	for _, c := range b {
		p.WriteByte(c)
	}
	return len(b), nil
}

func (p *Parser) WriteByte(c byte) error {
	switch p.state {
	case Idle:
		if c == Sync0 {
			p.state = SawFirstSync
		} else {
			p.skipped++
		}
	case SawFirstSync:
		switch c {
		case Sync1:
			p.state = ReadingHeader
		case Sync0:
			p.skipped++
		default:
			p.skipped += 2
			p.state = Idle
		}
	case ReadingHeader:
		p.header[p.hidx] = c
		p.hidx++
		if p.hidx < len(p.header) {
			break
		}
		op := Op(p.header[0])
		p.length = int(p.header[1])<<8 | int(p.header[2])
		p.dst = nil
		if p.Route != nil {
			p.dst = p.Route(op, p.length)
		}
		if p.dst == nil {
			p.dst = p.buf
		}
		if p.length == 0 {
			p.dispatch()
		} else {
			p.state = ReadingPayload
		}
	case ReadingPayload:
		if p.idx < len(p.dst) {
			p.dst[p.idx] = c
		} else {
			p.truncated++
		}
		p.idx++
		if p.idx == p.length {
			p.dispatch()
		}
	}
	return nil
}

// dispatch hands the frame to the handler and resets the parser regardless of
// what the handler does.
func (p *Parser) dispatch() {
	op := Op(p.header[0])
	payload := p.dst[:min(p.length, len(p.dst))]
	p.frames++
	p.Reset()
	if p.Handler != nil {
		p.Handler(op, payload)
	}
}
