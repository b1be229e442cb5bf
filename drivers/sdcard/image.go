package sdcard

import (
	"io"
	"io/fs"
	"os"
	"path"
	"sync"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// DefaultImageSize is the size of images created by CreateImage if none is
// given.
const DefaultImageSize = 64 << 20

// Image is a card backed by a raw disk image holding a FAT filesystem without
// partition table.
type Image struct {
	disk *disk.Disk

	mtx sync.Mutex
	fs  filesystem.FileSystem
}

func OpenImage(name string) (*Image, error) {
	d, err := diskfs.Open(name)
	if err != nil {
		return nil, err
	}
	return &Image{disk: d}, nil
}

// CreateImage creates and formats a new FAT32 image of size bytes. The file
// must not exist.
func CreateImage(name string, size int64, label string) (*Image, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	d, err := diskfs.Create(name, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return nil, err
	}
	fsys, err := d.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: label,
	})
	if err != nil {
		closeDisk(d)
		return nil, err
	}
	return &Image{disk: d, fs: fsys}, nil
}

func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	return img.disk.File.ReadAt(p, off)
}

func (img *Image) Mount() (FS, error) {
	img.mtx.Lock()
	defer img.mtx.Unlock()

	if img.fs == nil {
		fsys, err := img.disk.GetFilesystem(0)
		if err != nil {
			return nil, err
		}
		img.fs = fsys
	}
	return &imageFS{img.fs}, nil
}

func (img *Image) Close() error {
	return closeDisk(img.disk)
}

func closeDisk(d *disk.Disk) error {
	if d.File != nil {
		return d.File.Close()
	}
	return nil
}

type imageFS struct {
	fs filesystem.FileSystem
}

func (f *imageFS) Open(name string) (File, error) {
	file, err := f.fs.OpenFile(path.Join("/", name), os.O_RDONLY)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	size, err := file.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = file.Seek(0, io.SeekStart)
	}
	if err != nil {
		file.Close()
		return nil, &fs.PathError{Op: "seek", Path: name, Err: err}
	}
	return &imageFile{file, size}, nil
}

// Create opens name for writing, creating or truncating it.
func (f *imageFS) Create(name string) (io.WriteCloser, error) {
	file, err := f.fs.OpenFile(path.Join("/", name), os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return nil, &fs.PathError{Op: "create", Path: name, Err: err}
	}
	return file, nil
}

func (f *imageFS) List() ([]string, error) {
	infos, err := f.fs.ReadDir("/")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

type imageFile struct {
	filesystem.File
	size int64
}

func (f *imageFile) Size() int64 { return f.size }
