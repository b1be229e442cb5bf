package sdservice

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/sigurn/crc8"

	"github.com/clktmr/pc64/protocol"
)

// load streams the ROM image title into the memory array. Before streaming,
// the save type is negotiated and the save file restored, so the console side
// has both in place when the image is complete.
func (s *Service) load(title string) error {
	s.stats.Loads++
	s.title = title
	s.last = savefile{}

	fsys, err := s.mount()
	if err != nil {
		return wrapLoad("mount", err)
	}
	f, err := fsys.Open(title)
	if err != nil {
		return wrapLoad("open", err)
	}
	defer f.Close()

	var hdr [HeaderSize]byte
	n, err := io.ReadFull(f, hdr[:])
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		s.log.Printf("%s: %d bytes, no rom header", title, n)
	default:
		return wrapLoad(title, err)
	}
	order, err := DetectByteOrder(hdr[:n])
	if err != nil {
		s.log.Printf("%s: %v, loading as is", title, err)
	}
	conv := hdr
	order.ToBigEndian(conv[:n])
	h, _ := ParseHeader(conv[:n])

	s.saveType = s.cfg.SaveType(&h)
	s.log.Printf("loading %s: %q %s v%d (%v), %d bytes, save %v",
		title, h.Name, h.GameCode, h.Version, order, f.Size(), s.saveType)

	if err := s.send(protocol.OpSetSaveType, protocol.AppendSaveType(nil, s.saveType)); err != nil {
		return err
	}
	if err := s.restore(); err != nil {
		return err
	}

	start := time.Now()
	r := io.MultiReader(bytes.NewReader(hdr[:n]), f)
	total, writes, crc, err := s.stream(r, order)
	s.stats.Writes += uint64(writes)
	if err != nil {
		return wrapLoad(title, err)
	}
	elapsed := time.Since(start)
	s.log.Printf("loaded %d bytes in %d writes, %v (%.0f kB/s), crc8 %#02x",
		total, writes, elapsed.Round(time.Millisecond),
		float64(total)/1024/max(elapsed.Seconds(), 1e-6), crc)

	return s.send(protocol.OpROMLoaded, nil)
}

// stream copies r into the memory array in chunks. Chunks never cross a bank
// boundary, so the chip select is switched between chunks only.
func (s *Service) stream(r io.Reader, order ByteOrder) (total, writes int, crc uint8, err error) {
	banks := s.cfg.Banks
	bank := -1
	crc = crc8.Init(crcTable)
	for {
		n, rerr := io.ReadFull(r, s.chunk)
		if n > 0 {
			chunk := s.chunk[:n]
			order.ToBigEndian(chunk)

			i := banks.Index(uint32(total))
			if i != bank {
				if bank >= 0 {
					s.log.Printf("switching to chip %d at %#x", banks[i].ID, total)
				}
				bank = i
				s.mem.Select(banks[i].ID)
			}
			if _, err = s.mem.WriteAt(chunk, int64(uint32(total)-banks[i].Offset)); err != nil {
				return total, writes, crc, fmt.Errorf("chip %d: %w", banks[i].ID, err)
			}
			crc = crc8.Update(crc, chunk, crcTable)
			total += n
			writes++
		}
		switch rerr {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return total, writes, crc8.Complete(crc, crcTable), nil
		default:
			return total, writes, crc, rerr
		}
	}
}
