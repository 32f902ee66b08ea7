//go:build kernel386

// Command kernel is the freestanding entry point: kernel_main wires
// every internal/ subsystem together and hands control to the
// scheduler, the same staged bring-up sequence the teacher kernel's
// kernelMainBody runs (console/UART first for breadcrumbs, then heap,
// then interrupts, then drivers, interrupts enabled last).
//
// The boot stub that loads this binary in 32-bit protected mode, sets
// up a flat GDT, and jumps here with interrupts already disabled is an
// external assembly collaborator, out of scope for this module (see
// SPEC_FULL.md §1), as is the one common ISR trampoline that saves
// registers into a trap.Frame and calls trap.Handler.
package main

import (
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/console"
	"github.com/ringkrnl/ringkrnl/internal/critical"
	"github.com/ringkrnl/ringkrnl/internal/driver"
	"github.com/ringkrnl/ringkrnl/internal/drivers/ata"
	"github.com/ringkrnl/ringkrnl/internal/drivers/keyboard"
	"github.com/ringkrnl/ringkrnl/internal/drivers/pit"
	"github.com/ringkrnl/ringkrnl/internal/drivers/rtc"
	"github.com/ringkrnl/ringkrnl/internal/heap"
	"github.com/ringkrnl/ringkrnl/internal/idt"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
	"github.com/ringkrnl/ringkrnl/internal/pmm"
	"github.com/ringkrnl/ringkrnl/internal/sched"
	syscallpkg "github.com/ringkrnl/ringkrnl/internal/syscall"
	"github.com/ringkrnl/ringkrnl/internal/trap"
)

// isrStubAddr returns the entry address of the common ISR trampoline
// for the given vector, generated by the external boot assembly (one
// tiny per-vector stub that pushes the vector number and falls
// through to a shared register-save path, the conventional PC ISR
// table layout).
//
//go:linkname isrStubAddr isrStubAddr
func isrStubAddr(vector uint8) uint32

var heapBacking [config.HeapCapacity]byte

var (
	con       = console.New()
	kernHeap  = heap.New(heapBacking[:])
	frames    = pmm.NewForPhysMemory()
	table     idt.Table
	scheduler = sched.New()
	drivers   = driver.NewRegistry()
	dispatch  = &syscallpkg.Dispatcher{Sched: scheduler, Console: con, ReadUserBytes: readUserBytes}
)

// readUserBytes resolves a user-space (addr, length) pair to a slice
// over kernel-visible memory. Page tables and user/kernel address
// separation are out of scope for this core (SPEC_FULL.md §1), so
// this build treats the kernel's own flat address space as the only
// address space there is, the same simplification the syscall
// dispatch table's tests make with an in-memory byte array.
func readUserBytes(addr, length uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), length)
}

func main() {
	kernelMain()
}

// kernelMain performs the full bring-up sequence, then never returns:
// it hands off to an infinite halt loop woken only by interrupts.
func kernelMain() {
	con.Clear()
	kfmt.Sink = con
	kfmt.Fprintf(con, "ringkrnl booting\n")

	kfmt.Fprintf(con, "heap: %u bytes\n", uint64(config.HeapCapacity))
	kfmt.Fprintf(con, "pmm: %u frames (%u free)\n", uint64(frames.Total()), uint64(frames.Free()))
	reserveKernelImage()

	buildIDT()
	table.Install()
	idt.RemapPIC(config.VectorIRQBase, config.VectorIRQBase+8)
	kfmt.Fprintf(con, "idt installed, pic remapped\n")

	trap.Sink = con
	trap.IRQHook = handleIRQ
	trap.SyscallHook = handleSyscall

	registerDrivers()
	kfmt.Fprintf(con, "drivers: %u registered\n", uint64(drivers.Count()))

	spawnInit()

	critical.EnableInterrupts()
	kfmt.Fprintf(con, "interrupts enabled, idling\n")

	for {
		halt()
	}
}

// buildIDT points every exception and IRQ vector, plus the syscall
// gate, at the external trampoline stub for that vector. spec.md §4.4
// leaves unused vectors not-present, the Table zero value.
func buildIDT() {
	for v := 0; v < idt.NumVectors; v++ {
		switch {
		case v < config.VectorIRQBase:
			table.Set(uint8(v), isrStubAddr(uint8(v)))
		case v >= config.VectorIRQBase && v < config.VectorIRQBase+16:
			table.Set(uint8(v), isrStubAddr(uint8(v)))
		case v == 0x80:
			table.Set(uint8(v), isrStubAddr(uint8(v)))
		}
	}
}

// reserveKernelImage marks the low frames the kernel image and boot
// structures occupy as used, so the allocator never hands them out.
// The exact image size is a linker concern external to this module;
// this reserves a conservative fixed window (the first megabyte,
// the conventional low-memory reservation on PC-compatible boot).
func reserveKernelImage() {
	const reservedBytes = 1 * 1024 * 1024
	reservedFrames := uint(reservedBytes / config.PageSize)
	for f := uint(0); f < reservedFrames; f++ {
		_ = frames.Reserve(f)
	}
}

func registerDrivers() {
	kb := keyboard.New(keyboard.HardwarePorts{})
	pitDrv := pit.New(pit.HardwarePorts{}, config.TimerHz)
	rtcDrv := rtc.New(rtc.HardwarePorts{})
	ataDrv := ata.New(ata.HardwarePorts{}, config.PortATAPrimaryBase, config.PortATAPrimaryControl)

	for _, d := range []driver.Driver{kb, pitDrv, rtcDrv, ataDrv} {
		if err := d.Init(); err != nil {
			kfmt.Fprintf(con, "driver %s init failed\n", d.Name())
			continue
		}
		if err := drivers.Register(d); err != nil {
			kfmt.Fprintf(con, "driver %s register failed\n", d.Name())
		}
	}
}

// handleIRQ dispatches a hardware interrupt to the driver owning that
// line, then runs one scheduler tick if it was the timer, the
// interrupt-to-scheduler hookup spec.md §4.4 leaves to the IRQ path.
func handleIRQ(f *trap.Frame) {
	line := trap.IRQLine(f.Vector)
	if line == 0 {
		scheduler.Tick()
	}
	if d, err := drivers.GetByIRQ(line); err == nil {
		d.HandleInterrupt()
	}
}

// handleSyscall reads the syscall number and four arguments out of
// the frame's general-purpose registers (the conventional cdecl-ish
// ABI: EAX=number, EBX..EDX=arg1..arg3, ESI=arg4) and writes the
// result back into EAX, per spec.md §4.5.
func handleSyscall(f *trap.Frame) {
	f.EAX = uint32(dispatch.Dispatch(f.EAX, f.EBX, f.ECX, f.EDX, f.ESI))
}

//go:linkname halt haltForever
//go:nosplit
func halt()

// initEntry is the entry address of the first user program, resolved
// by the external image loader (out of scope for this module, per
// SPEC_FULL.md §1 -- process-image loading is a linked-in boot-time
// concern, not something this core parses from a filesystem it
// doesn't have).
//
//go:linkname initEntry initEntry
var initEntry uintptr

// spawnInit admits the first process, per spec.md §4.4's contract
// that the scheduler always has at least one non-idle runnable task
// once boot completes.
func spawnInit() {
	if _, err := scheduler.Spawn(kernHeap, "init", initEntry); err != nil {
		kfmt.Fprintf(con, "spawnInit failed\n")
	}
}
