//go:build windows

package link

import (
	"errors"
	"io"
)

type PTY struct {
	io.ReadWriteCloser
}

func NewPTY() (*PTY, error) {
	return nil, errors.New("pty links not supported on this platform")
}

func (p *PTY) Name() string   { return "" }
func (p *PTY) Writable() bool { return true }
