//go:build kernel386

// Package critical wraps the cli/sti primitives used to guard the
// kernel's mutable singletons (heap, frame bitmap, process table) the
// way spec.md §5 requires: "mutated only with interrupts disabled."
//
// The actual CLI/STI instructions are owned by the external assembly
// collaborator, the same way the teacher kernel delegates
// enable_irqs/disable_irqs to assembly (see exceptions.go in the
// teacher repo). Confined to the kernel386 build tag so packages that
// merely call critical.Section (heap_locked.go and friends) don't drag
// unresolved linkname symbols into a portable `go test ./...` run.
package critical

import (
	_ "unsafe" // for go:linkname
)

//go:linkname disableInterrupts disableInterrupts
//go:nosplit
func disableInterrupts()

//go:linkname enableInterrupts enableInterrupts
//go:nosplit
func enableInterrupts()

//go:linkname interruptsEnabled interruptsEnabled
//go:nosplit
func interruptsEnabled() bool

// Section disables interrupts and returns a function that restores
// the previous interrupt state. Callers should always defer the
// returned function:
//
//	defer critical.Section()()
//
// Nesting is safe: the innermost Section remembers whether interrupts
// were already off and will not turn them back on if so.
//
//go:nosplit
func Section() func() {
	wasEnabled := interruptsEnabled()
	disableInterrupts()
	return func() {
		if wasEnabled {
			enableInterrupts()
		}
	}
}

// EnableInterrupts turns interrupts on unconditionally. Used once, at
// the end of kernel_main's init sequence, after the IDT and PIC are
// programmed and every driver is registered -- not part of the
// Section nesting discipline above.
//
//go:nosplit
func EnableInterrupts() { enableInterrupts() }
