package sdservice

import (
	"errors"
	"io"
	"io/fs"

	"github.com/clktmr/pc64/protocol"
)

func (s *Service) saveName() string {
	return s.title + s.saveType.Ext()
}

// restore sends the save file of the current title, sized by the negotiated
// save type. Missing save files are not an error, the console starts with
// empty save memory then.
func (s *Service) restore() error {
	size := s.saveType.Size()
	if size == 0 {
		return nil
	}
	name := s.saveName()

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Printf("no save file %s", name)
		} else {
			s.log.Print("restore: ", err)
		}
		return nil
	}
	defer f.Close()

	buf := s.rx[:size]
	n, err := io.ReadFull(f, buf)
	if err != nil {
		s.log.Printf("restore %s: read %d of %d bytes: %v", name, n, size, err)
	}
	clear(buf[n:])

	s.last = savefile{name: name, size: size, crc: checksum(buf), valid: true}
	s.stats.Restores++
	s.log.Printf("restoring %d bytes from %s", size, name)
	return s.send(protocol.OpRestoreSave, buf)
}

// backup writes a save received from the console. Write errors are logged
// only, the console keeps its save memory and may retry.
func (s *Service) backup(p []byte) {
	if s.title == "" {
		s.log.Print("backup: no rom loaded")
		return
	}
	name := s.saveName()
	crc := checksum(p)
	if s.last.valid && s.last.name == name && s.last.size == len(p) && s.last.crc == crc {
		s.stats.Skipped++
		s.log.Printf("backup: %s unchanged", name)
		return
	}

	w, err := s.fs.Create(name)
	if err != nil {
		s.log.Print("backup: ", err)
		return
	}
	_, err = w.Write(p)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.log.Printf("backup %s: %v", name, err)
		return
	}

	s.last = savefile{name: name, size: len(p), crc: crc, valid: true}
	s.stats.Backups++
	s.log.Printf("saved %d bytes to %s", len(p), name)
}
