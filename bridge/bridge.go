// Package bridge runs the cooperative side of the bus-facing controller. It
// turns requests latched by the dispatcher into commands for the storage
// controller and stores the answers where the console expects them.
package bridge

import (
	"bytes"
	"context"
	"io"
	"log"

	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/drivers/link"
	"github.com/clktmr/pc64/protocol"
)

// MaxSectors is the number of sectors fitting the staging buffer.
const MaxSectors = cart.StagingSize / protocol.SectorSize

const (
	rxChunk    = 256
	maxLineLen = 256
)

type Stats struct {
	Sectors  uint64
	Loads    uint64
	Backups  uint64
	Restored uint64
	Frames   uint64
	Unknown  uint64
}

type Controller struct {
	state  *cart.State
	port   link.Port
	w      *protocol.Writer
	parser *protocol.Parser
	log    *log.Logger

	// sequence of the request in flight, zero if none
	pending uint32
	loading bool
	raw     int // raw sector bytes still expected
	rawIdx  int

	title   string
	backups chan struct{}
	line    bytes.Buffer
	payload []byte
	rx      []byte

	stats Stats
}

func New(s *cart.State, port link.Port, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Controller{
		state:   s,
		port:    port,
		w:       protocol.NewWriter(port),
		log:     logger,
		backups: make(chan struct{}, 1),
		rx:      make([]byte, cart.StagingSize),
	}
	c.parser = protocol.NewParser(c.rx, c.handleFrame)
	c.parser.Route = c.route
	return c
}

// Stats must not be called while Run is running.
func (c *Controller) Stats() Stats { return c.stats }

// Busy reports if a request is in flight. Must not be called while Run is
// running.
func (c *Controller) Busy() bool { return c.pending != 0 }

// RequestBackup asks Run to back up the save memory. It never blocks.
func (c *Controller) RequestBackup() {
	select {
	case c.backups <- struct{}{}:
	default:
	}
}

// Run serves requests until ctx is done or the link fails. Requests are served
// one at a time, the mailbox isn't drained while one is in flight.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.flushLine()

	rx := link.Receive(ctx, c.port, rxChunk)
	for {
		mailbox := c.state.Mailbox.C()
		if c.pending != 0 {
			mailbox = nil
		}

		select {
		case msg := <-mailbox:
			if err := c.request(ctx, &msg); err != nil {
				return err
			}
		case b, ok := <-rx.C:
			if !ok {
				if err := rx.Err(); err != io.EOF {
					return err
				}
				return nil
			}
			c.receive(b)
		case b := <-c.state.UART:
			c.uart(b)
		case <-c.backups:
			if err := c.BackupSave(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) request(ctx context.Context, msg *cart.Message) error {
	c.pending = msg.Seq
	switch msg.Kind {
	case cart.ReadSector:
		req := msg.Request
		req.Count = min(max(req.Count, 1), MaxSectors)
		c.raw = int(req.Count) * protocol.SectorSize
		c.rawIdx = 0
		c.stats.Sectors += uint64(req.Count)
		c.payload = protocol.AppendReadSector(c.payload[:0], req)
		return c.w.WriteFrame(ctx, protocol.OpReadSector, c.payload)

	case cart.LoadROM:
		c.title = msg.TitleString()
		c.loading = true
		c.stats.Loads++
		c.log.Printf("loading %s", c.title)
		return c.w.WriteFrame(ctx, protocol.OpLoadROM, []byte(c.title))
	}

	c.log.Printf("unknown request: %v", msg.Kind)
	c.complete()
	return nil
}

func (c *Controller) complete() {
	c.state.Complete(c.pending)
	c.pending = 0
}

// receive consumes bytes from the storage controller. Sector data is raw while
// a sector request is in flight, anything else is framed.
func (c *Controller) receive(b []byte) {
	for len(b) > 0 && c.raw > 0 {
		n := min(len(b), c.raw)
		copy(c.state.Staging[c.rawIdx:], b[:n])
		c.rawIdx += n
		c.raw -= n
		b = b[n:]
		if c.raw == 0 {
			c.complete()
		}
	}
	c.parser.Write(b)
}

func (c *Controller) route(op protocol.Op, n int) []byte {
	if op == protocol.OpRestoreSave {
		return c.state.Save[:]
	}
	return nil
}

func (c *Controller) handleFrame(op protocol.Op, payload []byte) {
	c.stats.Frames++
	switch op {
	case protocol.OpSetSaveType:
		t, err := protocol.ParseSaveType(payload)
		if err != nil {
			c.log.Print("set save type: ", err)
			return
		}
		c.state.SetSaveType(t)
		c.log.Printf("save type %v", t)

	case protocol.OpRestoreSave:
		c.stats.Restored += uint64(len(payload))
		c.log.Printf("restored %d bytes of save memory", len(payload))

	case protocol.OpROMLoaded:
		if !c.loading {
			c.log.Print("unexpected rom-loaded")
			return
		}
		c.loading = false
		c.complete()
		c.log.Printf("%s loaded", c.title)

	default:
		c.stats.Unknown++
		c.log.Printf("unknown command: %v", op)
	}
}

// BackupSave sends the save memory of the negotiated size to the storage
// controller, which stores it along the loaded ROM. Must not be called while
// Run is running, use RequestBackup instead.
func (c *Controller) BackupSave(ctx context.Context) error {
	size := c.state.SaveType().Size()
	if size == 0 || c.title == "" {
		return nil
	}
	c.stats.Backups++
	c.log.Printf("backing up %d bytes of save memory", size)
	return c.w.WriteFrame(ctx, protocol.OpBackupSave, c.state.Save[:size])
}

// uart collects bytes forwarded by the console into lines.
func (c *Controller) uart(b byte) {
	if b == '\n' || c.line.Len() >= maxLineLen {
		c.flushLine()
		if b == '\n' {
			return
		}
	}
	c.line.WriteByte(b)
}

func (c *Controller) flushLine() {
	if c.line.Len() == 0 {
		return
	}
	c.log.Printf("console: %s", c.line.Bytes())
	c.line.Reset()
}
