package cart

import (
	"fmt"
	"strings"
)

// SaveType selects the kind and size of the cartridge save memory. The value
// is part of the wire contract of the set-save-type command.
type SaveType uint16

const (
	SaveNone SaveType = iota
	SaveEEPROM4k
	SaveEEPROM16k
	SaveSRAM256k
)

var saveTypes = [...]struct {
	name string
	size int
	ext  string
}{
	SaveNone:      {"none", 0, ""},
	SaveEEPROM4k:  {"eeprom4k", 512, ".eep"},
	SaveEEPROM16k: {"eeprom16k", 2048, ".eep"},
	SaveSRAM256k:  {"sram256k", 32 * 1024, ".sra"},
}

func (t SaveType) valid() bool { return int(t) < len(saveTypes) }

// Size returns the number of bytes backed up for this save type.
func (t SaveType) Size() int {
	if !t.valid() {
		return 0
	}
	return saveTypes[t].size
}

// Ext returns the file suffix of save files of this type.
func (t SaveType) Ext() string {
	if !t.valid() {
		return ""
	}
	return saveTypes[t].ext
}

func (t SaveType) String() string {
	if !t.valid() {
		return fmt.Sprintf("savetype(%d)", uint16(t))
	}
	return saveTypes[t].name
}

// ParseSaveType parses the name of a save type as returned by String.
func ParseSaveType(s string) (SaveType, error) {
	for i, v := range saveTypes {
		if strings.EqualFold(s, v.name) {
			return SaveType(i), nil
		}
	}
	return SaveNone, fmt.Errorf("unknown save type: %q", s)
}

func (t SaveType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *SaveType) UnmarshalText(b []byte) (err error) {
	*t, err = ParseSaveType(string(b))
	return
}
