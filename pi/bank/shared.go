//go:build unix

package bank

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenShared returns an array backed by the file name, which is created if
// necessary. Every process opening the same file sees the same memory, like
// two controllers wired to the same chips.
func OpenShared(name string, first, n, capacity int) (*Array, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := n * capacity
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, err
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", name, err)
	}

	a := NewArray(first, n, capacity)
	for i := range a.chips {
		a.chips[i] = mem[i*capacity : (i+1)*capacity : (i+1)*capacity]
	}
	a.unmap = func() error { return unix.Munmap(mem) }
	return a, nil
}

// OpenDefaultShared returns a shared array of DefaultTable.
func OpenDefaultShared(name string) (*Array, error) {
	return OpenShared(name, FirstChip, Chips, ChipCapacity)
}
