package keyboard

import "testing"

type fakePorts struct {
	inQueue []uint8
	outLog  []uint8
}

func (f *fakePorts) InB(port uint16) uint8 {
	if len(f.inQueue) == 0 {
		return 0
	}
	b := f.inQueue[0]
	f.inQueue = f.inQueue[1:]
	return b
}

func (f *fakePorts) OutB(port uint16, value uint8) {
	f.outLog = append(f.outLog, value)
}

func TestInitSucceedsOnACK(t *testing.T) {
	ports := &fakePorts{inQueue: []uint8{0x00, 0x00, ackByte}}
	d := New(ports)
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func TestInitTimesOutWithoutACK(t *testing.T) {
	ports := &fakePorts{}
	d := New(ports)
	if err := d.Init(); err == nil {
		t.Fatalf("Init() error = nil, want a timeout error")
	}
}

func TestDecodeEnqueuesLowercaseLetter(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x1E) // 'a' make code
	b, ok := d.ReadByte()
	if !ok || b != 'a' {
		t.Errorf("ReadByte() = %q, %v, want 'a', true", b, ok)
	}
}

func TestDecodeShiftUppercasesLetter(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x2A) // left shift press
	d.Decode(0x1E) // 'a'
	b, _ := d.ReadByte()
	if b != 'A' {
		t.Errorf("shifted 'a' decoded to %q, want 'A'", b)
	}
}

func TestDecodeShiftReleaseRestoresLowercase(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x2A)
	d.Decode(0x2A | releaseBit)
	d.Decode(0x1E)
	b, _ := d.ReadByte()
	if b != 'a' {
		t.Errorf("after shift release, decoded %q, want 'a'", b)
	}
}

func TestDecodeCapsLockUppercasesLettersOnly(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x3A) // caps lock press
	d.Decode(0x1E) // 'a'
	b, _ := d.ReadByte()
	if b != 'A' {
		t.Errorf("caps-locked 'a' decoded to %q, want 'A'", b)
	}
}

func TestDecodeShiftedDigitUsesSymbolTable(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x2A)
	d.Decode(0x02) // '1' row
	b, _ := d.ReadByte()
	if b != '!' {
		t.Errorf("shifted '1' decoded to %q, want '!'", b)
	}
}

func TestRingBufferEmptyAndFull(t *testing.T) {
	d := New(&fakePorts{})
	if !d.Empty() {
		t.Fatalf("fresh ring should report Empty")
	}
	for i := 0; i < ringSize-1; i++ {
		d.Decode(0x1E) // 'a'
	}
	if !d.Full() {
		t.Errorf("ring after filling ringSize-1 bytes should report Full (one slot reserved)")
	}
	// One more enqueue should be dropped, not overwrite.
	d.Decode(0x1E)
	count := 0
	for !d.Empty() {
		d.ReadByte()
		count++
	}
	if count != ringSize-1 {
		t.Errorf("drained %d bytes, want %d (overflow dropped)", count, ringSize-1)
	}
}

func TestReleaseCodesAboveRangeAreIgnored(t *testing.T) {
	d := New(&fakePorts{})
	d.Decode(0x1E | releaseBit) // release of 'a', should not enqueue
	if !d.Empty() {
		t.Errorf("release scancode should not enqueue a byte")
	}
}
