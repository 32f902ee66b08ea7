//go:build kernel386

package ata

import "github.com/ringkrnl/ringkrnl/internal/ioport"

// HardwarePorts adapts internal/ioport to the Ports interface for a
// real kernel build.
type HardwarePorts struct{}

func (HardwarePorts) OutB(port uint16, value uint8)  { ioport.OutB(port, value) }
func (HardwarePorts) InB(port uint16) uint8          { return ioport.InB(port) }
func (HardwarePorts) OutW(port uint16, value uint16) { ioport.OutW(port, value) }
func (HardwarePorts) InW(port uint16) uint16         { return ioport.InW(port) }
