// Package pmm is the physical frame allocator: a bitmap over a fixed
// number of config.PageSize-byte frames, one bit per frame, set means
// reserved. It plays the role the teacher kernel gives its
// page-table/frame bookkeeping, but tracks whole frames rather than
// individual page-table entries, per spec.md §4.2.
//
// The bit-indexing scheme (word = frame>>5, bit = frame&31 within the
// word, little end first) is grounded on gopher-os's
// BitmapAllocator.markFrame, adapted from that allocator's 64-bit
// big-endian-within-block convention to the 32-bit little-endian
// convention internal/bitset.Words already uses elsewhere in this
// kernel, so pmm and bitset agree on bit order.
package pmm

import (
	"errors"

	"github.com/ringkrnl/ringkrnl/internal/bitset"
	"github.com/ringkrnl/ringkrnl/internal/config"
)

// ErrOutOfMemory is returned by AllocFrame when every tracked frame is
// reserved.
var ErrOutOfMemory = errors.New("pmm: out of physical frames")

// ErrFrameNotManaged is returned by FreeFrame for a frame index outside
// [0, total).
var ErrFrameNotManaged = errors.New("pmm: frame index out of range")

// ErrDoubleFree is returned by FreeFrame for a frame that is already
// free.
var ErrDoubleFree = errors.New("pmm: frame already free")

// Bitmap is a physical frame allocator. The zero value is not usable;
// construct one with New.
type Bitmap struct {
	bits      *bitset.Words
	total     uint
	used      uint
	firstFree uint // hint: no free frame below this index
}

// New returns a Bitmap tracking totalFrames frames, all initially
// free.
func New(totalFrames uint) *Bitmap {
	return &Bitmap{
		bits:  bitset.NewWords(totalFrames),
		total: totalFrames,
	}
}

// NewForPhysMemory sizes a Bitmap to cover config.PhysMemBytes worth
// of config.PageSize frames, the default layout spec.md §4.2
// describes for a single contiguous memory pool.
func NewForPhysMemory() *Bitmap {
	return New(config.PhysMemBytes / config.PageSize)
}

// Total returns the number of frames under management.
func (b *Bitmap) Total() uint { return b.total }

// Used returns the number of currently reserved frames.
func (b *Bitmap) Used() uint { return b.used }

// Free returns the number of currently free frames.
func (b *Bitmap) Free() uint { return b.total - b.used }

// Reserve marks frame as used without going through the
// next-free-frame search, for callers that must carve out specific
// frames up front (the kernel image, an early bump allocator's
// already-handed-out frames) the way reserveKernelFrames and
// reserveEarlyAllocatorFrames do in the allocator this package is
// grounded on. Reserving an already-reserved frame is a no-op.
func (b *Bitmap) Reserve(frame uint) error {
	if frame >= b.total {
		return ErrFrameNotManaged
	}
	if b.bits.Test(frame) {
		return nil
	}
	b.bits.Set(frame)
	b.used++
	if frame == b.firstFree {
		b.firstFree++
	}
	return nil
}

// AllocFrame reserves and returns the index of a free frame, advancing
// the firstFree hint so repeated allocations don't rescan frames known
// to be taken.
func (b *Bitmap) AllocFrame() (uint, error) {
	for i := b.firstFree; i < b.total; i++ {
		if !b.bits.Test(i) {
			b.bits.Set(i)
			b.used++
			b.firstFree = i + 1
			return i, nil
		}
	}
	return 0, ErrOutOfMemory
}

// FreeFrame releases a frame previously returned by AllocFrame.
func (b *Bitmap) FreeFrame(frame uint) error {
	if frame >= b.total {
		return ErrFrameNotManaged
	}
	if !b.bits.Test(frame) {
		return ErrDoubleFree
	}
	b.bits.Clear(frame)
	b.used--
	if frame < b.firstFree {
		b.firstFree = frame
	}
	return nil
}

// IsFree reports whether frame is currently unreserved.
func (b *Bitmap) IsFree(frame uint) bool {
	if frame >= b.total {
		return false
	}
	return !b.bits.Test(frame)
}
