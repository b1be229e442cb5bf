//go:build !unix

package bank

import "errors"

func OpenShared(name string, first, n, capacity int) (*Array, error) {
	return nil, errors.New("shared arrays not supported on this platform")
}

func OpenDefaultShared(name string) (*Array, error) {
	return OpenShared(name, FirstChip, Chips, ChipCapacity)
}
