package sdservice

import (
	"bytes"
	"errors"
	"testing"
)

func TestDetectByteOrder(t *testing.T) {
	tests := map[string]struct {
		data     []byte
		expected ByteOrder
		err      error
	}{
		"z64":   {[]byte{0x80, 0x37, 0x12, 0x40}, BigEndian, nil},
		"v64":   {[]byte{0x37, 0x80, 0x40, 0x12}, ByteSwap, nil},
		"n64":   {[]byte{0x40, 0x12, 0x37, 0x80}, LittleWord, nil},
		"other": {[]byte{0x00, 0x01, 0x02, 0x03}, BigEndian, ErrNotROM},
		"short": {[]byte{0x80, 0x37}, BigEndian, ErrNotROM},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			order, err := DetectByteOrder(tc.data)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if order != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, order)
			}
		})
	}
}

func TestToBigEndian(t *testing.T) {
	rom := testROM("NXXE", 0x80)
	for _, order := range []ByteOrder{BigEndian, ByteSwap, LittleWord} {
		t.Run(order.String(), func(t *testing.T) {
			data := bytes.Clone(rom)
			order.ToBigEndian(data) // all conversions are their own inverse
			detected, err := DetectByteOrder(data)
			if err != nil {
				t.Fatal(err)
			}
			if detected != order {
				t.Fatalf("expected %v, got %v", order, detected)
			}
			detected.ToBigEndian(data)
			if !bytes.Equal(data, rom) {
				t.Fatalf("expected %x, got %x", rom[:8], data[:8])
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	rom := testROM("NZLP", HeaderSize)
	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatal(err)
	}
	expected := Header{Name: "TEST ROM", GameCode: "NZLP", Version: 2}
	if h != expected {
		t.Fatalf("expected %+v, got %+v", expected, h)
	}
	if code := h.UniqueCode(); code != "ZL" {
		t.Fatalf("expected %v, got %v", "ZL", code)
	}

	// internal names of japanese releases
	copy(rom[hdrName:hdrName+hdrNameLen], append([]byte{0x83, 0x5b, 0x83, 0x8b, 0x83, 0x5f}, bytes.Repeat([]byte{' '}, 14)...))
	h, err = ParseHeader(rom)
	if err != nil {
		t.Fatal(err)
	}
	if h.Name != "ゼルダ" {
		t.Fatalf("expected %v, got %v", "ゼルダ", h.Name)
	}

	swapped := bytes.Clone(rom)
	ByteSwap.ToBigEndian(swapped)
	if _, err := ParseHeader(swapped); !errors.Is(err, ErrNotROM) {
		t.Fatalf("expected %v, got %v", ErrNotROM, err)
	}
	if _, err := ParseHeader(rom[:0x20]); !errors.Is(err, ErrNotROM) {
		t.Fatalf("expected %v, got %v", ErrNotROM, err)
	}
}
