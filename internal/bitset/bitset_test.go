package bitset

import (
	"fmt"
	"testing"
)

type pageFlags struct {
	Allocated  bool   `bitfield:",1"`
	KernelPage bool   `bitfield:",1"`
	Reserved   uint32 `bitfield:",30"`
}

func TestPackPageFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    pageFlags
		expected uint64
	}{
		{"all false", pageFlags{}, 0x00000000},
		{"only allocated", pageFlags{Allocated: true}, 0x00000001},
		{"only kernel", pageFlags{KernelPage: true}, 0x00000002},
		{"both", pageFlags{Allocated: true, KernelPage: true}, 0x00000003},
		{"with reserved", pageFlags{Allocated: true, Reserved: 0x12345678}, 0x48D159E1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Pack(tt.flags, &Config{NumBits: 32})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if packed != tt.expected {
				t.Errorf("Pack() = 0x%08x, want 0x%08x", packed, tt.expected)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []pageFlags{
		{false, false, 0},
		{true, false, 0},
		{false, true, 0},
		{true, true, 0x3FFFFFFF},
		{true, false, 0x12345678},
	}

	for i, original := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			packed, err := Pack(original, &Config{NumBits: 32})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			var got pageFlags
			if err := Unpack(packed, &got); err != nil {
				t.Fatalf("Unpack() error = %v", err)
			}
			if got != original {
				t.Errorf("round trip: got %+v, want %+v", got, original)
			}
		})
	}
}

func TestPackRejectsOverflow(t *testing.T) {
	type tooWide struct {
		V uint32 `bitfield:",2"`
	}
	_, err := Pack(tooWide{V: 7}, &Config{NumBits: 8})
	if err == nil {
		t.Fatal("expected error for value exceeding field width")
	}
}

func TestWordsSetClearTest(t *testing.T) {
	w := NewWords(100)
	if w.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", w.Len())
	}
	if w.Test(42) {
		t.Fatal("bit 42 should start clear")
	}
	w.Set(42)
	if !w.Test(42) {
		t.Fatal("bit 42 should be set")
	}
	if w.PopCount() != 1 {
		t.Fatalf("PopCount() = %d, want 1", w.PopCount())
	}
	w.Clear(42)
	if w.Test(42) {
		t.Fatal("bit 42 should be clear after Clear")
	}
	if w.PopCount() != 0 {
		t.Fatalf("PopCount() = %d, want 0", w.PopCount())
	}
}

func TestWordsOutOfRangeIsNoop(t *testing.T) {
	w := NewWords(8)
	w.Set(100) // out of range, must not panic or grow
	if w.Test(100) {
		t.Fatal("out-of-range bit must never read as set")
	}
}
