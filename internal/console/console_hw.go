//go:build kernel386

package console

import (
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/ioport"
)

var buffer = (*[cellCount]uint16)(unsafe.Pointer(config.VGATextBufferPhysAddr))

// Clear fills the grid with spaces in the current attribute and homes
// the cursor.
func (c *Console) Clear() {
	blank := cell(' ', c.attr)
	for i := range buffer {
		buffer[i] = blank
	}
	c.row, c.col = 0, 0
	c.syncCursor()
}

// WriteByte writes one character, handling '\n' and '\r' and
// scrolling the grid up one row when the cursor runs off the bottom.
func (c *Console) WriteByte(b byte) error {
	row, col, write, scrollNeeded := c.advance(b)
	if write {
		buffer[row*config.ConsoleWidth+col] = cell(b, c.attr)
	}
	if scrollNeeded {
		c.scroll()
	}
	c.syncCursor()
	return nil
}

// Write implements io.Writer so console.Console can be used as a
// kfmt.Fprintf sink.
func (c *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		c.WriteByte(b)
	}
	return len(p), nil
}

func (c *Console) scroll() {
	copy(buffer[0:(config.ConsoleHeight-1)*config.ConsoleWidth], buffer[config.ConsoleWidth:])
	blank := cell(' ', c.attr)
	for i := (config.ConsoleHeight - 1) * config.ConsoleWidth; i < cellCount; i++ {
		buffer[i] = blank
	}
}

// syncCursor programs the CRTC cursor-location registers per spec.md
// §6 (index 0x0F = low byte, 0x0E = high byte).
func (c *Console) syncCursor() {
	pos := c.cursorOffset()
	ioport.OutB(config.PortVGACRTCIndex, 0x0F)
	ioport.OutB(config.PortVGACRTCData, uint8(pos&0xFF))
	ioport.OutB(config.PortVGACRTCIndex, 0x0E)
	ioport.OutB(config.PortVGACRTCData, uint8((pos>>8)&0xFF))
}
