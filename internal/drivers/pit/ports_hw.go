//go:build kernel386

package pit

import "github.com/ringkrnl/ringkrnl/internal/ioport"

// HardwarePorts adapts internal/ioport to the Ports interface for a
// real kernel build.
type HardwarePorts struct{}

func (HardwarePorts) OutB(port uint16, value uint8) { ioport.OutB(port, value) }
