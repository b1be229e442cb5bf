package sdcard

import (
	"io"
	"os"
	"path/filepath"
)

// Dir is a card whose files live in a host directory. Raw sectors are served
// from an optional image file.
type Dir struct {
	root    string
	sectors io.ReaderAt
}

// NewDir returns a card serving the files below root. If sectors is not nil
// raw sector reads are served from it.
func NewDir(root string, sectors io.ReaderAt) *Dir {
	return &Dir{root: root, sectors: sectors}
}

func (d *Dir) ReadAt(p []byte, off int64) (int, error) {
	if d.sectors == nil {
		return 0, ErrNoSectors
	}
	return d.sectors.ReadAt(p, off)
}

func (d *Dir) Mount() (FS, error) {
	if _, err := os.Stat(d.root); err != nil {
		return nil, err
	}
	return dirFS(d.root), nil
}

type dirFS string

func (d dirFS) path(name string) string {
	return filepath.Join(string(d), filepath.FromSlash(filepath.Clean("/"+name)))
}

func (d dirFS) Open(name string) (File, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &dirFile{f, info.Size()}, nil
}

func (d dirFS) Create(name string) (io.WriteCloser, error) {
	return os.Create(d.path(name))
}

func (d dirFS) List() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

type dirFile struct {
	*os.File
	size int64
}

func (f *dirFile) Size() int64 { return f.size }
