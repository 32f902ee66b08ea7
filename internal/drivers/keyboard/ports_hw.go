//go:build kernel386

package keyboard

import "github.com/ringkrnl/ringkrnl/internal/ioport"

// HardwarePorts adapts internal/ioport to the Ports interface for a
// real kernel build.
type HardwarePorts struct{}

func (HardwarePorts) InB(port uint16) uint8         { return ioport.InB(port) }
func (HardwarePorts) OutB(port uint16, value uint8) { ioport.OutB(port, value) }
