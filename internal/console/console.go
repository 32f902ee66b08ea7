// Package console drives the 80x25 VGA text grid at physical 0xB8000
// and the CRTC cursor registers, the console surface spec.md §6
// describes. It plays the same role the teacher kernel's
// framebuffer_text.go plays for its pixel framebuffer, but at the
// cell-write granularity a VGA text mode actually offers: each cell is
// a (character, attribute) 16-bit pair rather than a pixel.
//
// This file holds the cell-packing and cursor-arithmetic rules, which
// have no hardware dependency and so build and test on any host. The
// memory-mapped buffer and CRTC port writes live in console_hw.go,
// behind the kernel386 build tag.
package console

import "github.com/ringkrnl/ringkrnl/internal/config"

// Attribute is a VGA text attribute byte: low nibble foreground, high
// nibble background (bit 7 sometimes repurposed as a blink bit, not
// used here).
type Attribute uint8

// Standard 16-color VGA text palette, named the way the teacher names
// its ANSI framebuffer palette in colors.go.
const (
	ColorBlack Attribute = iota
	ColorBlue
	ColorGreen
	ColorCyan
	ColorRed
	ColorMagenta
	ColorBrown
	ColorLightGrey
	ColorDarkGrey
	ColorLightBlue
	ColorLightGreen
	ColorLightCyan
	ColorLightRed
	ColorLightMagenta
	ColorYellow
	ColorWhite
)

// MakeAttribute packs a foreground/background pair into one attribute
// byte.
func MakeAttribute(fg, bg Attribute) Attribute {
	return fg | (bg << 4)
}

// PanicAttribute is the "reserved color pair" spec.md §4.3 requires
// for the panic banner: a loud red-on-white.
var PanicAttribute = MakeAttribute(ColorRed, ColorWhite)

// DefaultAttribute is the normal console color scheme.
var DefaultAttribute = MakeAttribute(ColorLightGrey, ColorBlack)

const cellCount = config.ConsoleWidth * config.ConsoleHeight

// Console owns cursor state for the VGA text grid.
type Console struct {
	row, col uint32
	attr     Attribute
}

// New returns a Console using DefaultAttribute, positioned at 0,0.
func New() *Console {
	return &Console{attr: DefaultAttribute}
}

// EncodeCell packs a character and attribute into the 16-bit value a
// VGA text-mode cell stores, exported so the packing rule can be
// tested without touching the memory-mapped buffer itself.
func EncodeCell(c byte, attr Attribute) uint16 {
	return uint16(c) | uint16(attr)<<8
}

func cell(c byte, attr Attribute) uint16 { return EncodeCell(c, attr) }

// SetAttribute changes the attribute used for subsequent writes.
func (c *Console) SetAttribute(attr Attribute) { c.attr = attr }

// advance applies the cursor-movement rule for one output byte,
// returning the row/col the byte should be written at (or write=false for
// control bytes that move the cursor but write nothing) and whether
// the grid needs to scroll afterward.
func (c *Console) advance(b byte) (row, col uint32, write, scrollNeeded bool) {
	switch b {
	case '\n':
		row, col = c.row, c.col
		c.row++
		c.col = 0
	case '\r':
		c.col = 0
		return 0, 0, false, false
	default:
		row, col, write = c.row, c.col, true
		c.col++
		if c.col >= config.ConsoleWidth {
			c.col = 0
			c.row++
		}
	}
	if c.row >= config.ConsoleHeight {
		scrollNeeded = true
		c.row = config.ConsoleHeight - 1
	}
	return row, col, write, scrollNeeded
}

func (c *Console) cursorOffset() uint32 {
	return c.row*config.ConsoleWidth + c.col
}
