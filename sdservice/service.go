// Package sdservice runs on the storage-facing controller. It answers commands
// received over the link with data from the SD card: raw sectors, ROM images
// loaded into the shared memory array, and save files.
package sdservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sigurn/crc8"

	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/drivers/link"
	"github.com/clktmr/pc64/drivers/sdcard"
	"github.com/clktmr/pc64/pi/bank"
	"github.com/clktmr/pc64/protocol"
)

var (
	// ErrLoadFailed ends the service, as the console can't boot without the
	// selected ROM.
	ErrLoadFailed = errors.New("rom load failed")

	ErrChunkSize = errors.New("chunk size must divide bank offsets")
)

var crcTable = crc8.MakeTable(crc8.CRC8)

const rxChunk = 256

// savefile remembers the last save read or written, to skip rewriting
// unchanged backups.
type savefile struct {
	name  string
	size  int
	crc   uint8
	valid bool
}

// Stats counts the commands served.
type Stats struct {
	Sectors    uint64
	SectorErrs uint64
	Loads      uint64
	Writes     uint64 // chunks written to the memory array
	Backups    uint64
	Skipped    uint64
	Restores   uint64
	Unknown    uint64
}

type Service struct {
	card  sdcard.Card
	port  link.Port
	w     *protocol.Writer
	mem   *bank.Port
	cfg   Config
	log   *log.Logger
	stats Stats

	fs       sdcard.FS
	title    string
	saveType cart.SaveType
	last     savefile

	rx     []byte
	sector [protocol.SectorSize]byte
	chunk  []byte

	ctx context.Context
	err error
}

// New returns a service answering commands received on port. ROMs are written
// to the memory array through mem.
func New(card sdcard.Card, port link.Port, mem *bank.Port, cfg Config, logger *log.Logger) *Service {
	cfg.setDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		card:  card,
		port:  port,
		w:     protocol.NewWriter(port),
		mem:   mem,
		cfg:   cfg,
		log:   logger,
		rx:    make([]byte, protocol.MaxPayload),
		chunk: make([]byte, cfg.ChunkSize),
	}
}

// Stats must not be called while Run is running.
func (s *Service) Stats() Stats { return s.stats }

// Run serves commands until ctx is done, the link fails or a ROM can't be
// loaded.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	p := protocol.NewParser(s.rx, s.handle)
	rx := link.Receive(ctx, s.port, rxChunk)
	for chunk := range rx.C {
		p.Write(chunk)
		if s.err != nil {
			return s.err
		}
	}
	if err := rx.Err(); err != io.EOF {
		return err
	}
	return nil
}

func (s *Service) handle(op protocol.Op, payload []byte) {
	var err error
	switch op {
	case protocol.OpReadSector:
		err = s.readSectors(payload)
	case protocol.OpLoadROM:
		err = s.load(string(payload))
	case protocol.OpBackupSave:
		s.backup(payload)
	default:
		s.stats.Unknown++
		s.log.Printf("unknown command: %v", op)
	}
	if err != nil && s.err == nil {
		s.err = err
	}
}

func (s *Service) readSectors(payload []byte) error {
	req, err := protocol.ParseReadSector(payload)
	if err != nil {
		s.log.Print("read sector: ", err)
		return nil
	}
	req.Count = max(req.Count, 1)

	for i := range uint64(req.Count) {
		off := int64(req.Sector+i) * protocol.SectorSize
		if n, err := s.card.ReadAt(s.sector[:], off); err != nil && n < len(s.sector) {
			s.stats.SectorErrs++
			s.log.Printf("read sector %d: %v", req.Sector+i, err)
		}
		if err := s.w.WriteRaw(s.ctx, s.sector[:]); err != nil {
			return err
		}
		s.stats.Sectors++
	}
	return nil
}

func (s *Service) mount() (sdcard.FS, error) {
	if s.fs == nil {
		fs, err := s.card.Mount()
		if err != nil {
			return nil, err
		}
		s.fs = fs
	}
	return s.fs, nil
}

func checksum(p []byte) uint8 {
	return crc8.Checksum(p, crcTable)
}

func (s *Service) send(op protocol.Op, payload []byte) error {
	return s.w.WriteFrame(s.ctx, op, payload)
}

func wrapLoad(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoadFailed, what, err)
}
