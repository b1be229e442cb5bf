// Package sdcard provides the SD card backends of the storage controller. A
// card serves raw 512 byte sectors and can be mounted to access files by
// name.
package sdcard

import (
	"errors"
	"io"
	"os"
)

const SectorSize = 512

var ErrNoSectors = errors.New("card has no raw sectors")

type Card interface {
	io.ReaderAt
	Mount() (FS, error)
}

// FS is a mounted card. Names are relative to the root directory.
type FS interface {
	Open(name string) (File, error)
	Create(name string) (io.WriteCloser, error)
	List() ([]string, error)
}

type File interface {
	io.ReadCloser
	Size() int64
}

// Open returns the card at path, either a FAT image or a directory standing in
// for the card's filesystem. Cards which need closing implement io.Closer.
func Open(path string) (Card, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return NewDir(path, nil), nil
	}
	img, err := OpenImage(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}
