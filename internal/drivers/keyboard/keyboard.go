// Package keyboard drives the PS/2 keyboard controller, per spec.md
// §4.7: init, scancode decode, and a ring buffer feeding the kernel
// main loop. The ring buffer and scancode table have no hardware
// dependency and are exercised here against a fake Ports
// implementation; only the real HardwarePorts adapter (ports_hw.go)
// lives behind the kernel386 tag, the dependency-injection split this
// kernel uses for every concrete driver.
package keyboard

import (
	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

// Ports is the narrow port-I/O surface this driver needs, small
// enough that tests supply an in-memory fake and only a real kernel
// build wires it to internal/ioport.
type Ports interface {
	InB(port uint16) uint8
	OutB(port uint16, value uint8)
}

const (
	cmdEnableScanning  = 0xF4
	cmdEnableKeyboard  = 0xAE
	cmdSetLEDs         = 0xED
	ackByte            = 0xFA
	scancodeShiftLeft  = 0x2A
	scancodeShiftRight = 0x36
	scancodeCtrl       = 0x1D
	scancodeAlt        = 0x38
	scancodeCapsLock   = 0x3A
	releaseBit         = 0x80
)

const ringSize = 256

// ackPollBudget bounds how long Init waits for the controller's ACK
// byte, the same order of magnitude as the ATA poll budget spec.md
// §4.7 gives for disk waits since neither is specified exactly for
// the keyboard controller.
const ackPollBudget = config.ATAMaxPolls

// Driver is the PS/2 keyboard driver: a one-byte-reserved circular
// ring buffer fed by HandleInterrupt and drained by the kernel main
// loop, plus the shift/ctrl/alt/caps modifier state spec.md §4.7
// describes.
type Driver struct {
	ports Ports

	ring       [ringSize]byte
	readIdx    uint32
	writeIdx   uint32

	shift, ctrl, alt, capsLock bool
}

// New returns a keyboard Driver over ports.
func New(ports Ports) *Driver {
	return &Driver{ports: ports}
}

func (d *Driver) Name() string { return "keyboard" }
func (d *Driver) ID() uint8    { return 1 }
func (d *Driver) IRQ() uint8   { return 1 }

// Init enables the keyboard controller and scanning, per spec.md
// §4.7's init sequence, and waits for the ACK byte.
func (d *Driver) Init() error {
	d.ports.OutB(config.PortPS2Status, cmdEnableKeyboard)
	d.ports.OutB(config.PortPS2Data, cmdEnableScanning)

	for i := 0; i < ackPollBudget; i++ {
		if d.ports.InB(config.PortPS2Data) == ackByte {
			kfmt.Printf("[keyboard] controller ACKed, scanning enabled\n")
			return nil
		}
	}
	return errTimeout
}

// Shutdown is a no-op: the PS/2 controller needs no explicit teardown
// in this core.
func (d *Driver) Shutdown() {}

// HandleInterrupt reads one scancode from the data port, updates
// modifier state, decodes it to ASCII, and enqueues non-zero
// characters, per spec.md §4.7.
func (d *Driver) HandleInterrupt() {
	d.Decode(d.ports.InB(config.PortPS2Data))
}

// Decode applies the scancode decode rule to a single byte read from
// the controller, kept separate from HandleInterrupt so tests can
// drive it without a Ports fake round-trip.
func (d *Driver) Decode(scancode byte) {
	released := scancode&releaseBit != 0
	code := scancode &^ releaseBit

	switch code {
	case scancodeShiftLeft, scancodeShiftRight:
		d.shift = !released
		return
	case scancodeCtrl:
		d.ctrl = !released
		return
	case scancodeAlt:
		d.alt = !released
		return
	case scancodeCapsLock:
		if !released {
			d.capsLock = !d.capsLock
			d.ports.OutB(config.PortPS2Data, cmdSetLEDs)
		}
		return
	}

	if released || code >= 128 {
		return
	}

	ch := lookupASCII(code, d.shift, d.capsLock)
	if ch != 0 {
		d.enqueue(ch)
	}
}

func (d *Driver) enqueue(b byte) {
	next := (d.writeIdx + 1) % ringSize
	if next == d.readIdx {
		return // full: one slot reserved, drop rather than overwrite
	}
	d.ring[d.writeIdx] = b
	d.writeIdx = next
}

// ReadByte drains one byte from the ring, or returns ok=false when
// empty.
func (d *Driver) ReadByte() (b byte, ok bool) {
	if d.readIdx == d.writeIdx {
		return 0, false
	}
	b = d.ring[d.readIdx]
	d.readIdx = (d.readIdx + 1) % ringSize
	return b, true
}

// Empty reports whether the ring buffer has no pending bytes.
func (d *Driver) Empty() bool { return d.readIdx == d.writeIdx }

// Full reports whether the ring buffer cannot accept another byte
// without the reader draining one first.
func (d *Driver) Full() bool { return (d.writeIdx+1)%ringSize == d.readIdx }

var errTimeout = kbdError("keyboard: controller did not ACK")

type kbdError string

func (e kbdError) Error() string { return string(e) }

// baseASCII and shiftedASCII are the scancode-to-character tables for
// codes 0-127, per spec.md §4.7's "look up base or shifted ASCII
// table" rule. A US QWERTY layout, the conventional default for a
// bare-metal hobby kernel.
var baseASCII = [128]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm',
	0x39: ' ', 0x1C: '\n',
}

var shiftedASCII = [128]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x39: ' ', 0x1C: '\n',
}

// lookupASCII resolves a make-code to ASCII: letters follow Caps
// Lock XOR Shift (matching how a real keyboard controller treats
// Caps Lock as a letter-only modifier), other keys follow Shift
// alone via shiftedASCII.
func lookupASCII(code byte, shift, capsLock bool) byte {
	ch := baseASCII[code]
	if ch >= 'a' && ch <= 'z' {
		if shift != capsLock {
			ch = ch - 'a' + 'A'
		}
		return ch
	}
	if shift {
		if s := shiftedASCII[code]; s != 0 {
			return s
		}
	}
	return ch
}
