package idt

import "testing"

func TestNewGateRoundTripsHandlerAddr(t *testing.T) {
	tests := []uint32{0, 0x1000, 0xDEADBEEF, 0xFFFFFFFF}
	for _, addr := range tests {
		g := NewGate(addr)
		if got := g.HandlerAddr(); got != addr {
			t.Errorf("NewGate(0x%x).HandlerAddr() = 0x%x, want 0x%x", addr, got, addr)
		}
	}
}

func TestNewGateIsPresentWithExpectedSelector(t *testing.T) {
	g := NewGate(0x1234)
	if !g.Present() {
		t.Errorf("NewGate(...).Present() = false, want true")
	}
	if g.selector != Selector {
		t.Errorf("gate selector = 0x%x, want 0x%x", g.selector, Selector)
	}
}

func TestClearMarksNotPresent(t *testing.T) {
	var table Table
	table.Set(3, 0xABCD)
	if !table.Gates[3].Present() {
		t.Fatalf("Set should mark the gate present")
	}
	table.Clear(3)
	if table.Gates[3].Present() {
		t.Errorf("Clear should mark the gate not-present")
	}
}

func TestZeroTableAllGatesNotPresent(t *testing.T) {
	var table Table
	for i, g := range table.Gates {
		if g.Present() {
			t.Fatalf("gate %d present in a zero-value Table, want all not-present", i)
		}
	}
}

func TestSetStoresAtCorrectVector(t *testing.T) {
	var table Table
	table.Set(7, 0x5000)
	for i, g := range table.Gates {
		if i == 7 {
			continue
		}
		if g.Present() {
			t.Fatalf("gate %d present after Set(7, ...), want only vector 7 touched", i)
		}
	}
	if table.Gates[7].HandlerAddr() != 0x5000 {
		t.Errorf("table.Gates[7].HandlerAddr() = 0x%x, want 0x5000", table.Gates[7].HandlerAddr())
	}
}
