package cart

import (
	"encoding/json"
	"testing"
)

func TestSDRequest(t *testing.T) {
	var r SDRequest
	for i, v := range []uint16{0x0001, 0x0203, 0x0405, 0x0607} {
		r.SetSectorPart(i, v)
	}
	r.SetCountPart(0, 0)
	r.SetCountPart(1, 8)

	expected := SDRequest{Sector: 0x0001_0203_0405_0607, Count: 8}
	if r != expected {
		t.Fatalf("expected %+v, got %+v", expected, r)
	}
	for i, v := range []uint16{0x0001, 0x0203, 0x0405, 0x0607} {
		if part := r.SectorPart(i); part != v {
			t.Fatalf("expected %#x, got %#x", v, part)
		}
	}

	// rewriting a part leaves the others alone
	r.SetSectorPart(2, 0xffff)
	if expected := uint64(0x0001_0203_ffff_0607); r.Sector != expected {
		t.Fatalf("expected %#x, got %#x", expected, r.Sector)
	}
	if part := r.CountPart(1); part != 8 {
		t.Fatalf("expected %v, got %v", 8, part)
	}
}

func TestMailbox(t *testing.T) {
	s := NewState()

	msg := Message{Kind: ReadSector, Seq: s.BeginRequest()}
	if !s.Mailbox.Push(&msg) {
		t.Fatal("expected push to succeed")
	}
	if s.Mailbox.Push(&msg) {
		t.Fatal("expected push to a full mailbox to fail")
	}

	// the pushed copy is independent of the sender's message
	msg.Kind = LoadROM
	got, ok := s.Mailbox.Pop()
	if !ok || got.Kind != ReadSector {
		t.Fatalf("expected %v, got %v", ReadSector, got.Kind)
	}
	if _, ok := s.Mailbox.Pop(); ok {
		t.Fatal("expected empty mailbox")
	}
}

func TestBusy(t *testing.T) {
	s := NewState()
	if s.Busy() {
		t.Fatal("expected idle state")
	}

	first := s.BeginRequest()
	if !s.Busy() {
		t.Fatal("expected busy state")
	}
	s.Complete(first)
	if s.Busy() {
		t.Fatal("expected idle state")
	}

	second := s.BeginRequest()
	s.CancelRequest(second)
	if s.Busy() {
		t.Fatal("expected canceled request to leave state idle")
	}

	// a late completion of an old request doesn't end the current one
	third := s.BeginRequest()
	s.Complete(first)
	if !s.Busy() {
		t.Fatal("expected busy state")
	}
	s.Complete(third)
	if s.Busy() {
		t.Fatal("expected idle state")
	}
}

func TestForward(t *testing.T) {
	s := NewState()
	p := make([]byte, uartDepth+10)
	if n := s.Forward(p); n != uartDepth {
		t.Fatalf("expected %v, got %v", uartDepth, n)
	}
	if n := s.Forward(p); n != 0 {
		t.Fatalf("expected %v, got %v", 0, n)
	}
}

func TestSaveType(t *testing.T) {
	tests := map[string]struct {
		typ  SaveType
		size int
		ext  string
	}{
		"none":      {SaveNone, 0, ""},
		"eeprom4k":  {SaveEEPROM4k, 512, ".eep"},
		"eeprom16k": {SaveEEPROM16k, 2048, ".eep"},
		"sram256k":  {SaveSRAM256k, 32768, ".sra"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			typ, err := ParseSaveType(name)
			if err != nil {
				t.Fatal(err)
			}
			if typ != tc.typ {
				t.Fatalf("expected %v, got %v", tc.typ, typ)
			}
			if typ.Size() != tc.size {
				t.Fatalf("expected %v, got %v", tc.size, typ.Size())
			}
			if typ.Ext() != tc.ext {
				t.Fatalf("expected %v, got %v", tc.ext, typ.Ext())
			}
		})
	}

	if _, err := ParseSaveType("flashram"); err == nil {
		t.Fatal("expected error")
	}
	if size := SaveType(42).Size(); size != 0 {
		t.Fatalf("expected %v, got %v", 0, size)
	}

	var cfg struct {
		Types map[string]SaveType
	}
	if err := json.Unmarshal([]byte(`{"Types": {"ZL": "SRAM256k"}}`), &cfg); err != nil {
		t.Fatal(err)
	}
	if typ := cfg.Types["ZL"]; typ != SaveSRAM256k {
		t.Fatalf("expected %v, got %v", SaveSRAM256k, typ)
	}
}
