// Package heap implements the kernel's dynamic allocator: a
// coalescing, address-ordered free-list over a fixed backing window,
// exactly as spec.md §3/§4.1 describe. It is the kernel's only dynamic
// allocator (sched.Spawn carves process kernel stacks from it) —
// DESIGN NOTES §9 retires the teacher's second, parallel bump
// allocator in favor of unifying on this one.
//
// The block layout and split/coalesce algorithm are adapted from the
// teacher kernel's heapSegment/kmalloc/kfree (heap.go), generalized
// from best-fit to the first-fit policy spec.md §4.1 specifies, with
// an explicit alignment parameter and a distinct free-sentinel so a
// double free is detectable rather than silently corrupting.
package heap

import (
	"errors"
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

// Sentinel values. MagicUsed marks a live header; MagicFree marks a
// freed one. DESIGN NOTES §9 calls out that the source overloads one
// sentinel for both the heap header and a stack canary — this kernel
// gives the heap two of its own, distinct from sched.StackCanary.
const (
	MagicUsed uint32 = 0xDEADBEEF
	MagicFree uint32 = 0xFEEDFACE
)

// ErrInvalidAlignment is returned when the requested alignment is not
// a power of two. spec.md marks non-power-of-two alignment
// "undefined... implementers should assert"; returning an error is
// the checked equivalent in code that must never panic.
var ErrInvalidAlignment = errors.New("heap: alignment must be a power of two")

// block is the header placed immediately before every live
// allocation. Blocks are threaded in a single doubly-linked list kept
// in address order, per spec.md §3's invariant.
type block struct {
	next, prev *block
	size       uint32 // total size including this header
	used       bool
	magic      uint32
}

var headerSize = uint32(unsafe.Sizeof(block{}))

// Heap is a first-fit, coalescing allocator over a fixed byte window.
// It is not reentrant: callers must hold critical.Section() around
// Alloc/Free, or call through a Heap owned exclusively by one
// execution context, per spec.md §5.
type Heap struct {
	base           uintptr
	capacity       uint32
	totalAllocated uint32
	head           *block // first block in address order, or nil
	invalidFrees   uint32
}

// New creates a Heap over backing, which must remain alive and
// untouched by the caller for the Heap's lifetime (it is addressed
// directly, not copied).
func New(backing []byte) *Heap {
	h := &Heap{capacity: uint32(len(backing))}
	if len(backing) > 0 {
		h.base = uintptr(unsafe.Pointer(&backing[0]))
	}
	return h
}

// Capacity returns the total size of the backing window.
func (h *Heap) Capacity() uint32 { return h.capacity }

// TotalAllocated returns how much of the backing window has been
// claimed by bump growth so far (live or freed — freed bump space is
// reused via the free list, not returned to the bump mark).
func (h *Heap) TotalAllocated() uint32 { return h.totalAllocated }

func (h *Heap) blockAt(offset uint32) *block {
	return (*block)(unsafe.Pointer(h.base + uintptr(offset)))
}

func (h *Heap) offsetOf(b *block) uint32 {
	return uint32(uintptr(unsafe.Pointer(b)) - h.base)
}

func roundUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// Alloc returns a pointer to a zero-initialized region of at least
// size bytes aligned to alignment (rounded up to config.HeapAlignment
// if alignment is 0), or nil if the request cannot be satisfied.
//
// Algorithm per spec.md §4.1: round size up to alignment, add the
// header, scan the block list first-fit; split the winning block if
// its remainder exceeds header+64 bytes; otherwise bump-allocate a
// fresh block at the current top of heap.
//
// Alloc is not reentrant (spec.md §5): callers sharing a Heap across
// interrupt context must serialize with critical.Section, or call
// AllocLocked instead.
func (h *Heap) Alloc(size, alignment uint32) (unsafe.Pointer, error) {
	if alignment == 0 {
		alignment = config.HeapAlignment
	}
	if !isPowerOfTwo(alignment) {
		return nil, ErrInvalidAlignment
	}
	if size == 0 {
		return nil, nil
	}

	totalSize := roundUp(size, alignment) + headerSize

	if b := h.findFirstFit(totalSize); b != nil {
		h.claim(b, totalSize)
		return h.dataPtr(b), nil
	}

	if h.totalAllocated+totalSize > h.capacity {
		return nil, nil
	}

	b := h.blockAt(h.totalAllocated)
	*b = block{size: totalSize, used: true, magic: MagicUsed}
	h.link(b)
	h.totalAllocated += totalSize
	return h.dataPtr(b), nil
}

// AllocZeroed allocates count*size bytes and returns the pointer. The
// memory is zeroed because claim zeroes a block's payload at the
// moment it's handed out (covering any freed neighbor's header bytes
// folded in by a prior merge) and a fresh bump-allocated block is
// backed by an already-zeroed window, so every path Alloc can return
// through is zero by construction.
func (h *Heap) AllocZeroed(count, size uint32) (unsafe.Pointer, error) {
	return h.Alloc(count*size, config.HeapAlignment)
}

// Free releases a pointer previously returned by Alloc/AllocZeroed,
// zeroing its payload so a future AllocZeroed never leaks stale data
// through a reclaimed block. A mismatched or already-free sentinel is
// logged via kfmt and the call becomes a no-op (spec.md §4.1/§7:
// safety over reclamation).
//
// Free is not reentrant; see Alloc's note on locking discipline.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	b := (*block)(unsafe.Pointer(uintptr(ptr) - uintptr(headerSize)))
	if b.magic != MagicUsed {
		h.invalidFrees++
		kfmt.Printf("heap: invalid free at %x (bad sentinel)\n", uint32(uintptr(ptr)))
		return
	}

	h.zeroPayload(b)

	b.used = false
	b.magic = MagicFree

	if b.next != nil && !b.next.used {
		h.mergeRight(b)
	}
	if b.prev != nil && !b.prev.used {
		b = h.mergeLeft(b)
	}
	_ = b
}

// zeroPayload clears b's data bytes (everything after the header), so
// a block reused by a later Alloc never exposes the previous
// occupant's contents.
func (h *Heap) zeroPayload(b *block) {
	n := b.size - headerSize
	data := unsafe.Slice((*byte)(h.dataPtr(b)), n)
	for i := range data {
		data[i] = 0
	}
}

// findFirstFit returns the first free block in address order whose
// size is >= need, or nil.
func (h *Heap) findFirstFit(need uint32) *block {
	for b := h.head; b != nil; b = b.next {
		if !b.used && b.size >= need {
			return b
		}
	}
	return nil
}

// claim marks b used, splitting off a trailing free remainder when
// it is large enough to be worth keeping separate.
func (h *Heap) claim(b *block, need uint32) {
	remainder := b.size - need
	if remainder > headerSize+config.HeapSplitSlack {
		newOffset := h.offsetOf(b) + need
		newBlock := h.blockAt(newOffset)
		*newBlock = block{
			next:  b.next,
			prev:  b,
			size:  remainder,
			used:  false,
			magic: MagicFree,
		}
		if newBlock.next != nil {
			newBlock.next.prev = newBlock
		}
		b.next = newBlock
		b.size = need
	}
	b.used = true
	b.magic = MagicUsed

	// A merge folds a freed neighbor's header bytes into this block's
	// free span; zero the whole claimed range here rather than relying
	// solely on Free's payload zeroing, so a claim that crosses a
	// former header boundary never exposes that neighbor's stale
	// block metadata.
	h.zeroPayload(b)
}

// link inserts a freshly bump-allocated block at the tail of the list
// (bump allocation always grows the top of the heap, so the new block
// is always the highest address).
func (h *Heap) link(b *block) {
	if h.head == nil {
		h.head = b
		return
	}
	tail := h.head
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = b
	b.prev = tail
}

func (h *Heap) mergeRight(b *block) {
	next := b.next
	b.size += next.size
	b.next = next.next
	if b.next != nil {
		b.next.prev = b
	}
}

func (h *Heap) mergeLeft(b *block) *block {
	prev := b.prev
	prev.size += b.size
	prev.next = b.next
	if prev.next != nil {
		prev.next.prev = prev
	}
	return prev
}

func (h *Heap) dataPtr(b *block) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + uintptr(headerSize))
}

// InvalidFrees reports how many Free calls were dropped due to a
// sentinel mismatch (corruption or double free), the "logged and
// swallowed" path of spec.md §7.
func (h *Heap) InvalidFrees() uint32 { return h.invalidFrees }
