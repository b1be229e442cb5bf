//go:build windows

package link

import (
	"errors"
	"io"
)

const DefaultBaud = 115200

type Serial struct {
	io.ReadWriteCloser
}

func OpenSerial(name string, baud int) (*Serial, error) {
	return nil, errors.New("serial links not supported on this platform")
}

func (s *Serial) Writable() bool { return true }
