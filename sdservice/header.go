package sdservice

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// https://n64brew.dev/wiki/ROM_Header
const (
	HeaderSize = 0x40

	hdrName     = 0x20
	hdrNameLen  = 20
	hdrGameCode = 0x3b
	hdrVersion  = 0x3f
)

var ErrNotROM = errors.New("not a n64 rom image")

// ByteOrder of a ROM image as found on the card.
type ByteOrder uint8

const (
	BigEndian  ByteOrder = iota // .z64
	ByteSwap                    // .v64
	LittleWord                  // .n64
)

func (o ByteOrder) String() string {
	switch o {
	case ByteSwap:
		return "v64"
	case LittleWord:
		return "n64"
	}
	return "z64"
}

var magics = [...][4]byte{
	BigEndian:  {0x80, 0x37, 0x12, 0x40},
	ByteSwap:   {0x37, 0x80, 0x40, 0x12},
	LittleWord: {0x40, 0x12, 0x37, 0x80},
}

// DetectByteOrder returns the byte order of an image starting with b.
func DetectByteOrder(b []byte) (ByteOrder, error) {
	if len(b) >= 4 {
		for o, m := range magics {
			if bytes.Equal(b[:4], m[:]) {
				return ByteOrder(o), nil
			}
		}
	}
	return BigEndian, ErrNotROM
}

// ToBigEndian converts b in place. A trailing partial word is left as is.
func (o ByteOrder) ToBigEndian(b []byte) {
	switch o {
	case ByteSwap:
		for i := 0; i+1 < len(b); i += 2 {
			b[i], b[i+1] = b[i+1], b[i]
		}
	case LittleWord:
		for i := 0; i+3 < len(b); i += 4 {
			b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
		}
	}
}

// Header holds the fields of the ROM header relevant for loading.
type Header struct {
	Name     string
	GameCode string
	Version  uint8
}

// UniqueCode returns the two characters identifying the game regardless of
// region.
func (h *Header) UniqueCode() string {
	if len(h.GameCode) < 3 {
		return ""
	}
	return h.GameCode[1:3]
}

// ParseHeader decodes a big endian ROM header. The internal name is Shift JIS
// encoded.
func ParseHeader(b []byte) (h Header, err error) {
	if len(b) < HeaderSize {
		return h, ErrNotROM
	}
	if o, err := DetectByteOrder(b); err != nil || o != BigEndian {
		return h, ErrNotROM
	}

	raw := bytes.TrimRight(b[hdrName:hdrName+hdrNameLen], " \x00")
	name, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		name = raw
	}
	h.Name = strings.TrimSpace(string(name))
	h.GameCode = strings.TrimRight(string(b[hdrGameCode:hdrVersion]), "\x00")
	h.Version = b[hdrVersion]
	return h, nil
}
