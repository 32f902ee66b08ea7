// Package pit drives the 8253/8254 Programmable Interval Timer that
// raises IRQ 0 at config.TimerHz, the tick source spec.md §4.4's
// scheduler runs on. The divisor arithmetic has no hardware
// dependency; only programming the command/data ports is behind the
// kernel386 tag.
package pit

import (
	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

// Ports is the narrow port-I/O surface this driver needs.
type Ports interface {
	OutB(port uint16, value uint8)
}

// baseFrequency is the PIT's fixed oscillator frequency (Hz).
const baseFrequency = 1193182

const (
	modeSquareWave = 0x36 // channel 0, lobyte/hibyte, mode 3, binary
)

// Divisor returns the 16-bit reload value that programs the PIT for
// hz interrupts per second.
func Divisor(hz uint32) uint16 {
	return uint16(baseFrequency / hz)
}

// Driver is the PIT channel-0 timer driver.
type Driver struct {
	ports Ports
	hz    uint32
}

// New returns a Driver programmed for hz interrupts per second.
func New(ports Ports, hz uint32) *Driver {
	return &Driver{ports: ports, hz: hz}
}

func (d *Driver) Name() string { return "pit" }
func (d *Driver) ID() uint8    { return 2 }
func (d *Driver) IRQ() uint8   { return 0 }

// Init programs channel 0 to the configured frequency, per spec.md
// §4.7.
func (d *Driver) Init() error {
	divisor := Divisor(d.hz)
	d.ports.OutB(config.PortPITCommand, modeSquareWave)
	d.ports.OutB(config.PortPITChannel0, uint8(divisor&0xFF))
	d.ports.OutB(config.PortPITChannel0, uint8(divisor>>8))
	kfmt.Printf("[pit] channel 0 programmed for %d Hz (divisor %d)\n", int64(d.hz), int64(divisor))
	return nil
}

func (d *Driver) Shutdown() {}

// HandleInterrupt is a no-op for the PIT itself: tick bookkeeping is
// owned by the scheduler, invoked from the shared IRQ dispatch path
// rather than per-driver (spec.md §4.3's irq_handler owns ticks
// directly).
func (d *Driver) HandleInterrupt() {}
