package sdcard

import (
	"bytes"
	"io"
	"io/fs"
	"maps"
	"slices"
	"sync"
)

// Mem is a card held in memory.
type Mem struct {
	mtx     sync.Mutex
	sectors []byte
	files   map[string][]byte

	// MountErr, if set, is returned by Mount.
	MountErr error
}

func NewMem(sectors []byte, files map[string][]byte) *Mem {
	m := &Mem{sectors: sectors, files: make(map[string][]byte)}
	for name, data := range files {
		m.files[name] = bytes.Clone(data)
	}
	return m
}

func (m *Mem) ReadAt(p []byte, off int64) (n int, err error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.sectors == nil {
		return 0, ErrNoSectors
	}
	if off >= int64(len(m.sectors)) {
		return 0, io.EOF
	}
	n = copy(p, m.sectors[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

func (m *Mem) Mount() (FS, error) {
	if m.MountErr != nil {
		return nil, m.MountErr
	}
	return memFS{m}, nil
}

// File returns a copy of the named file's contents.
func (m *Mem) File(name string) ([]byte, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	data, ok := m.files[name]
	return bytes.Clone(data), ok
}

type memFS struct {
	m *Mem
}

func (f memFS) Open(name string) (File, error) {
	data, ok := f.m.File(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memFile{bytes.NewReader(data)}, nil
}

func (f memFS) Create(name string) (io.WriteCloser, error) {
	return &memWriter{m: f.m, name: name}, nil
}

func (f memFS) List() ([]string, error) {
	f.m.mtx.Lock()
	defer f.m.mtx.Unlock()
	return slices.Sorted(maps.Keys(f.m.files)), nil
}

type memFile struct {
	*bytes.Reader
}

func (f *memFile) Close() error { return nil }

// memWriter stores the file on Close.
type memWriter struct {
	bytes.Buffer
	m    *Mem
	name string
}

func (w *memWriter) Close() error {
	w.m.mtx.Lock()
	defer w.m.mtx.Unlock()
	w.m.files[w.name] = bytes.Clone(w.Bytes())
	return nil
}
