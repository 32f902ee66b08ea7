// Package idt builds the 256-entry x86 interrupt descriptor table
// spec.md §4.4 describes: one 8-byte Gate per vector, pointing at a
// common dispatch trampoline, encoding the handler offset split across
// two 16-bit halves the way the x86 IDT format requires.
//
// The encode/decode rules here have no hardware dependency (no port
// I/O, no LIDT) and build and test on any host. Loading the table onto
// the CPU (idt_hw.go, behind the kernel386 tag) is a thin, untestable
// shim on top of this package's pure Table type, the same split
// gopher-os draws between its gate package's pure Registers/constants
// and its installIDT/HandleInterrupt assembly-backed functions.
package idt

// Selector is the code-segment selector every gate in this kernel
// points at: the single flat kernel code segment spec.md §2 assumes.
const Selector uint16 = 0x08

// Gate flag byte: present, ring 0, 32-bit interrupt gate (type 0xE).
const flagsPresentRing0Interrupt32 uint8 = 0x8E

// Gate is the packed, 8-byte IDT descriptor format the x86 protected
// mode interrupt table uses.
type Gate struct {
	offsetLow  uint16
	selector   uint16
	zero       uint8
	flags      uint8
	offsetHigh uint16
}

// NewGate packs handlerAddr into a present, ring-0, 32-bit interrupt
// gate referencing Selector.
func NewGate(handlerAddr uint32) Gate {
	return Gate{
		offsetLow:  uint16(handlerAddr & 0xFFFF),
		selector:   Selector,
		zero:       0,
		flags:      flagsPresentRing0Interrupt32,
		offsetHigh: uint16(handlerAddr >> 16),
	}
}

// HandlerAddr unpacks the handler address a Gate encodes.
func (g Gate) HandlerAddr() uint32 {
	return uint32(g.offsetHigh)<<16 | uint32(g.offsetLow)
}

// Present reports whether the gate's present bit is set.
func (g Gate) Present() bool { return g.flags&0x80 != 0 }

// NumVectors is the size of a full x86 IDT.
const NumVectors = 256

// Table is a full 256-entry interrupt descriptor table. The zero
// value is 256 empty (not-present) gates, matching the boot-time state
// spec.md §4.4 specifies before Install runs.
type Table struct {
	Gates [NumVectors]Gate
}

// Set installs handlerAddr at vector, marking the gate present.
func (t *Table) Set(vector uint8, handlerAddr uint32) {
	t.Gates[vector] = NewGate(handlerAddr)
}

// Clear marks vector not-present.
func (t *Table) Clear(vector uint8) {
	t.Gates[vector] = Gate{}
}
