package dma

import "testing"

type counter struct{}

func (counter) ReadHalf(idx uint32) uint16 { return uint16(idx) }

func TestChannel(t *testing.T) {
	ring := make([]uint16, 4)
	c := New(counter{}, 2)

	c.Arm(0x100, ring, 1)
	for i := range 2 {
		if !c.Busy() {
			t.Fatalf("expected busy on poll %v", i)
		}
	}
	if c.Busy() {
		t.Fatal("expected transfer to be done")
	}

	for range 5 {
		c.Retrigger()
	}

	expected := []uint16{0x104, 0x105, 0x102, 0x103}
	for i := range ring {
		if ring[i] != expected[i] {
			t.Fatalf("expected %#x, got %#x", expected, ring)
		}
	}
	if c.Transfers() != 6 {
		t.Fatalf("expected 6 transfers, got %v", c.Transfers())
	}
}

func TestRetriggerUnarmed(t *testing.T) {
	c := New(counter{}, 0)
	c.Retrigger()
	if c.Busy() || c.Transfers() != 0 {
		t.Fatal("expected unarmed channel to stay idle")
	}
}
