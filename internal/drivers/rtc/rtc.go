// Package rtc drives the CMOS real-time clock, per spec.md §4.7: init
// arms periodic interrupts, HandleInterrupt acks register 0x0C, and
// Now busy-waits out the update-in-progress flag before BCD-decoding
// the wall-clock registers. BCD decode has no hardware dependency and
// is tested directly; only the CMOS port sequencing needs a Ports
// fake or the real ioport adapter.
package rtc

import (
	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

// Ports is the narrow port-I/O surface this driver needs.
type Ports interface {
	OutB(port uint16, value uint8)
	InB(port uint16) uint8
}

const (
	regSeconds  = 0x00
	regMinutes  = 0x02
	regHours    = 0x04
	regDay      = 0x07
	regMonth    = 0x08
	regYear     = 0x09
	regStatusA  = 0x0A
	regStatusB  = 0x0B
	regStatusC  = 0x0C
	updateInProgressBit = 0x80
	periodicInterruptBit = 0x40
)

// Time is a decoded wall-clock reading, per spec.md §4.7 ("year +=
// 2000").
type Time struct {
	Second, Minute, Hour int
	Day, Month, Year     int
}

// Driver is the CMOS RTC driver.
type Driver struct {
	ports Ports
}

// New returns a Driver over ports.
func New(ports Ports) *Driver {
	return &Driver{ports: ports}
}

func (d *Driver) Name() string { return "rtc" }
func (d *Driver) ID() uint8    { return 3 }
func (d *Driver) IRQ() uint8   { return 8 }

// Init arms periodic interrupts, per spec.md §4.7: read register
// 0x0B, set the periodic-interrupt bit, write it back, then read
// register 0x0C to arm the next interrupt.
func (d *Driver) Init() error {
	d.ports.OutB(config.PortCMOSAddress, regStatusB)
	prev := d.ports.InB(config.PortCMOSData)
	d.ports.OutB(config.PortCMOSAddress, regStatusB)
	d.ports.OutB(config.PortCMOSData, prev|periodicInterruptBit)

	d.ports.OutB(config.PortCMOSAddress, regStatusC)
	d.ports.InB(config.PortCMOSData)
	kfmt.Printf("[rtc] periodic interrupt armed\n")
	return nil
}

func (d *Driver) Shutdown() {}

// HandleInterrupt acknowledges the RTC interrupt by reading register
// 0x0C, per spec.md §4.7.
func (d *Driver) HandleInterrupt() {
	d.ports.OutB(config.PortCMOSAddress, regStatusC)
	d.ports.InB(config.PortCMOSData)
}

func (d *Driver) readRegister(reg uint8) uint8 {
	d.ports.OutB(config.PortCMOSAddress, reg)
	return d.ports.InB(config.PortCMOSData)
}

func (d *Driver) updateInProgress() bool {
	d.ports.OutB(config.PortCMOSAddress, regStatusA)
	return d.ports.InB(config.PortCMOSData)&updateInProgressBit != 0
}

// Now busy-waits for the update-in-progress flag to clear, then reads
// and BCD-decodes the wall-clock registers, per spec.md §4.7.
func (d *Driver) Now() Time {
	for d.updateInProgress() {
	}
	return Time{
		Second: int(DecodeBCD(d.readRegister(regSeconds))),
		Minute: int(DecodeBCD(d.readRegister(regMinutes))),
		Hour:   int(DecodeBCD(d.readRegister(regHours))),
		Day:    int(DecodeBCD(d.readRegister(regDay))),
		Month:  int(DecodeBCD(d.readRegister(regMonth))),
		Year:   2000 + int(DecodeBCD(d.readRegister(regYear))),
	}
}

// DecodeBCD converts a binary-coded-decimal byte (two 4-bit decimal
// digits packed per nibble) to its decimal value.
func DecodeBCD(v uint8) uint8 {
	return (v>>4)*10 + (v & 0x0F)
}
