//go:build kernel386

package trap

import (
	_ "unsafe" // for go:linkname

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/idt"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

//go:linkname readCR2 readCR2
//go:nosplit
func readCR2() uint32

//go:linkname haltForever haltForever
//go:nosplit
func haltForever()

// Sink receives fatal diagnostic output (a panic banner) and ordinary
// dispatch logs. It is set once during boot by whoever owns the real
// console, mirroring the teacher's uartPuts being the one sink every
// handler writes through.
var Sink interface {
	Write(p []byte) (int, error)
}

// Handler is invoked by the assembly ISR trampoline for every vector.
// It decodes Frame's class and dispatches to the matching handler
// table, the same role handleException's switch on EC plays in the
// teacher kernel.
func Handler(f *Frame) {
	switch ClassOf(f.Vector) {
	case ClassException:
		handleException(f)
	case ClassIRQ:
		handleIRQ(f)
	case ClassSyscall:
		handleSyscall(f)
	}
}

// ExceptionHook is called for any vector classified as a CPU
// exception (0-31 excluding the syscall gate). Defaulting to Panicf
// mirrors the teacher's default "System halted" path.
var ExceptionHook = func(f *Frame) { Panicf(f) }

// IRQHook is called for any vector classified as a hardware
// interrupt, before EOI.
var IRQHook = func(f *Frame) {}

// SyscallHook is called for the software interrupt vector 0x80.
var SyscallHook = func(f *Frame) {}

func handleException(f *Frame) {
	if f.Vector == config.VectorPageFault {
		fault := DecodePageFault(f.ErrorCode)
		if Sink != nil {
			kfmt.Fprintf(Sink, "page fault at 0x%08x (present=%d write=%d user=%d)\n",
				readCR2(), b2i(fault.Present), b2i(fault.Write), b2i(fault.User))
		}
	}
	ExceptionHook(f)
}

func handleIRQ(f *Frame) {
	IRQHook(f)
	idt.SendEOI(IRQLine(f.Vector))
}

func handleSyscall(f *Frame) {
	SyscallHook(f)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Panicf formats a fatal diagnostic banner to Sink and halts the CPU,
// the role "System halted" plays after the teacher's unhandled
// exception case.
func Panicf(f *Frame) {
	if Sink != nil {
		kfmt.Fprintf(Sink, "\nFATAL: %s (vector=%d, error=0x%08x)\n", ExceptionName(f.Vector), f.Vector, f.ErrorCode)
		kfmt.Fprintf(Sink, "EIP=%08x CS=%08x EFLAGS=%08x\n", f.EIP, f.CS, f.EFlags)
		kfmt.Fprintf(Sink, "EAX=%08x EBX=%08x ECX=%08x EDX=%08x\n", f.EAX, f.EBX, f.ECX, f.EDX)
		kfmt.Fprintf(Sink, "ESI=%08x EDI=%08x EBP=%08x ESP=%08x\n", f.ESI, f.EDI, f.EBP, f.ESP)
	}
	haltForever()
}
