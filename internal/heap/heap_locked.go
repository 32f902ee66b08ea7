//go:build kernel386

package heap

import (
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/critical"
)

// AllocLocked is Alloc wrapped in critical.Section, for use by code
// running with interrupts enabled that shares this Heap with
// interrupt handlers (spec.md §5's locking discipline). It lives
// behind the kernel386 build tag because critical.Section links
// against the boot assembly's cli/sti primitives, which only exist in
// a real kernel build.
func (h *Heap) AllocLocked(size, alignment uint32) (unsafe.Pointer, error) {
	done := critical.Section()
	defer done()
	return h.Alloc(size, alignment)
}

// FreeLocked is Free wrapped in critical.Section.
func (h *Heap) FreeLocked(ptr unsafe.Pointer) {
	done := critical.Section()
	defer done()
	h.Free(ptr)
}
