package bank

import (
	"bytes"
	"errors"
	"testing"
)

type selectRecorder struct {
	ids []int
}

func (s *selectRecorder) Select(id int) { s.ids = append(s.ids, id) }

func TestResolve(t *testing.T) {
	tests := map[string]struct {
		addr   uint32
		bank   int
		offset uint32
	}{
		"first byte":      {0x1000_0000, 0, 0},
		"first bank end":  {0x107f_fffe, 0, 0x7f_fffe},
		"second bank":     {0x1080_0000, 1, 0},
		"second bank mid": {0x1080_1234, 1, 0x1234},
		"last bank":       {0x1380_0040, 7, 0x40},
		"beyond table":    {0x1400_0000, 7, 0x80_0000},
	}

	r := NewResolver(DefaultTable, &selectRecorder{})
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			bank, offset := r.Resolve(tc.addr)
			if bank != tc.bank {
				t.Fatalf("expected bank %v, got %v", tc.bank, bank)
			}
			if offset != tc.offset {
				t.Fatalf("expected offset %#x, got %#x", tc.offset, offset)
			}
		})
	}
}

func TestResolveProperties(t *testing.T) {
	r := NewResolver(DefaultTable, &selectRecorder{})
	for addr := uint32(0x1000_0000); addr < 0x1400_0000; addr += 0x1_0001 {
		bank, offset := r.Resolve(addr)
		if bank < 0 || bank >= len(DefaultTable) {
			t.Fatalf("%#x: bank %v out of table", addr, bank)
		}
		if DefaultTable[bank].Offset > addr-romBase {
			t.Fatalf("%#x: bank %v starts beyond address", addr, bank)
		}
		if offset > offsetMask {
			t.Fatalf("%#x: offset %#x exceeds chip", addr, offset)
		}
	}
}

func TestSelect(t *testing.T) {
	sel := &selectRecorder{}
	r := NewResolver(DefaultTable, sel)

	r.Select(0x1000_1000)
	r.Select(0x1000_2000)
	r.Select(0x1090_0000)
	r.Select(0x1091_0000)
	r.Select(0x1000_0000)

	expected := []int{1, 2, 1}
	if len(sel.ids) != len(expected) {
		t.Fatalf("expected selects %v, got %v", expected, sel.ids)
	}
	for i := range expected {
		if sel.ids[i] != expected[i] {
			t.Fatalf("expected selects %v, got %v", expected, sel.ids)
		}
	}

	r.Select(0x1090_0000)
	if r.Current() != 1 {
		t.Fatalf("expected current bank 1, got %v", r.Current())
	}
	if off := r.Offset(0x1090_0002); off != 0x10_0002 {
		t.Fatalf("expected offset 0x100002, got %#x", off)
	}
}

func TestPort(t *testing.T) {
	a := NewArray(FirstChip, 2, 16)
	w, r := a.Port(), a.Port()

	if _, err := w.WriteAt([]byte{1}, 0); !errors.Is(err, ErrNoChip) {
		t.Fatalf("expected %v, got %v", ErrNoChip, err)
	}

	w.Select(2)
	if _, err := w.WriteAt([]byte{0xca, 0xfe, 0xba, 0xbe}, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteAt(make([]byte, 4), 14); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected %v, got %v", ErrOutOfRange, err)
	}

	if v := r.ReadHalf(2); v != 0xffff {
		t.Fatalf("expected floating bus, got %#x", v)
	}
	r.Select(1)
	if v := r.ReadHalf(2); v != 0 {
		t.Fatalf("expected unwritten chip to read 0, got %#x", v)
	}
	r.Select(2)
	if v := r.ReadHalf(2); v != 0xcafe {
		t.Fatalf("expected 0xcafe, got %#x", v)
	}
	if v := r.ReadHalf(3); v != 0xbabe {
		t.Fatalf("expected 0xbabe, got %#x", v)
	}

	buf := make([]byte, 4)
	if _, err := r.ReadAt(buf, 4); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0xca, 0xfe, 0xba, 0xbe}) {
		t.Fatalf("expected cafebabe, got %x", buf)
	}

	w.Select(3)
	if _, err := w.WriteAt([]byte{1}, 0); !errors.Is(err, ErrUnknownChip) {
		t.Fatalf("expected %v, got %v", ErrUnknownChip, err)
	}
}
