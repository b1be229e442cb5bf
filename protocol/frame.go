// Package protocol implements the command link between the bus-facing and the
// storage-facing controller.
//
// Every command is sent as a frame:
//
//	0xDE 0xAD <op> <len hi> <len lo> <payload...>
//
// The payload length is big endian. There is no checksum and no escaping, a
// receiver resynchronizes on the next sync sequence seen outside of a frame.
// Sector data answering a read-sector command is sent raw, without framing.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/clktmr/pc64/cart"
)

const (
	Sync0 = 0xde
	Sync1 = 0xad

	// HeaderLen is the number of bytes preceding the payload.
	HeaderLen = 5

	MaxPayload = 0xffff

	// SectorSize is the size of a raw sector in a read-sector answer.
	SectorSize = 512

	ReadSectorLen  = 12
	SetSaveTypeLen = 2
)

var (
	ErrPayloadTooLong = errors.New("payload too long")
	ErrShortPayload   = errors.New("short payload")
)

// Op is the command byte of a frame.
type Op byte

const (
	OpReadSector  Op = 'r'
	OpLoadROM     Op = 'l'
	OpROMLoaded   Op = 0xc6
	OpBackupSave  Op = 0xbe
	OpRestoreSave Op = 0xeb
	OpSetSaveType Op = 0xe7
)

func (op Op) String() string {
	switch op {
	case OpReadSector:
		return "read-sector"
	case OpLoadROM:
		return "load-rom"
	case OpROMLoaded:
		return "rom-loaded"
	case OpBackupSave:
		return "backup-save"
	case OpRestoreSave:
		return "restore-save"
	case OpSetSaveType:
		return "set-save-type"
	}
	return fmt.Sprintf("op(%#02x)", byte(op))
}

// AppendFrame appends a frame of op carrying payload to b.
func AppendFrame(b []byte, op Op, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return b, fmt.Errorf("%w: %d", ErrPayloadTooLong, len(payload))
	}
	b = append(b, Sync0, Sync1, byte(op))
	b = binary.BigEndian.AppendUint16(b, uint16(len(payload)))
	return append(b, payload...), nil
}

// Encode returns the frame of op carrying payload.
func Encode(op Op, payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, HeaderLen+len(payload)), op, payload)
}

// AppendReadSector appends the payload of a read-sector command.
func AppendReadSector(b []byte, r cart.SDRequest) []byte {
	b = binary.BigEndian.AppendUint64(b, r.Sector)
	return binary.BigEndian.AppendUint32(b, r.Count)
}

// ParseReadSector decodes the payload of a read-sector command.
func ParseReadSector(p []byte) (r cart.SDRequest, err error) {
	if len(p) < ReadSectorLen {
		return r, fmt.Errorf("%w: %d", ErrShortPayload, len(p))
	}
	r.Sector = binary.BigEndian.Uint64(p)
	r.Count = binary.BigEndian.Uint32(p[8:])
	return r, nil
}

// AppendSaveType appends the payload of a set-save-type command.
func AppendSaveType(b []byte, t cart.SaveType) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(t))
}

// ParseSaveType decodes the payload of a set-save-type command.
func ParseSaveType(p []byte) (cart.SaveType, error) {
	if len(p) < SetSaveTypeLen {
		return cart.SaveNone, fmt.Errorf("%w: %d", ErrShortPayload, len(p))
	}
	return cart.SaveType(binary.BigEndian.Uint16(p)), nil
}
