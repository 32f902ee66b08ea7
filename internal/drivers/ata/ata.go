// Package ata drives a primary-channel ATA PIO disk, per spec.md
// §4.7: identify on init, LBA28 sector read/write over 256-word PIO
// transfers, bounded busy/DRQ waits. The word byte-swap and
// LBA-to-port-field arithmetic have no hardware dependency; only the
// port wait loop touches real I/O, injected through Ports so the
// whole protocol is testable against an in-memory fake disk.
package ata

import (
	"errors"

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/kfmt"
)

// Ports is the narrow port-I/O surface this driver needs: byte ports
// for the LBA/command registers, a word port for the 256-word PIO
// data transfer.
type Ports interface {
	OutB(port uint16, value uint8)
	InB(port uint16) uint8
	OutW(port uint16, value uint16)
	InW(port uint16) uint16
}

const (
	regData     = 0x00
	regError    = 0x01
	regSectorCt = 0x02
	regLBALow   = 0x03
	regLBAMid   = 0x04
	regLBAHigh  = 0x05
	regDrive    = 0x06
	regCommand  = 0x07
	regStatus   = 0x07

	cmdIdentify     = 0xEC
	cmdReadSectors  = 0x20
	cmdWriteSectors = 0x30
	cmdCacheFlush   = 0xE7

	statusBusy = 0x80
	statusDRQ  = 0x08

	driveSelectLBAMaster = 0xE0

	sectorWords = 256
	sectorBytes = 512
)

// ErrTimeout is returned when a busy/DRQ wait exceeds
// config.ATAMaxPolls, per spec.md §4.7.
var ErrTimeout = errors.New("ata: operation timed out")

// Identity is the subset of the IDENTIFY DEVICE response this driver
// extracts, per spec.md §4.7: the model string (byte-swapped words
// 27-46) and total addressable LBA28 sector count (words 60-61).
type Identity struct {
	Model        string
	TotalSectors uint32
}

// Driver is the primary-channel ATA PIO driver.
type Driver struct {
	ports    Ports
	base     uint16
	control  uint16
	identity Identity
}

// New returns a Driver addressing the given command-block base port
// and control port (config.PortATAPrimaryBase/Control for the
// conventional primary channel).
func New(ports Ports, base, control uint16) *Driver {
	return &Driver{ports: ports, base: base, control: control}
}

func (d *Driver) Name() string { return "ata" }
func (d *Driver) ID() uint8    { return 4 }
func (d *Driver) IRQ() uint8   { return 14 }

// Identity returns the identity extracted by Init.
func (d *Driver) Identity() Identity { return d.identity }

// Init issues IDENTIFY DEVICE and parses the model string and sector
// count, per spec.md §4.7.
func (d *Driver) Init() error {
	d.ports.OutB(d.base+regDrive, driveSelectLBAMaster)
	d.ports.OutB(d.base+regCommand, cmdIdentify)

	if err := d.waitDRQ(); err != nil {
		return err
	}

	var words [sectorWords]uint16
	for i := 0; i < sectorWords; i++ {
		words[i] = d.ports.InW(d.base + regData)
	}

	d.identity = Identity{
		Model:        decodeModelString(words[27:47]),
		TotalSectors: uint32(words[60]) | uint32(words[61])<<16,
	}
	kfmt.Printf("[ata] identified %s, %u sectors\n", d.identity.Model, uint64(d.identity.TotalSectors))
	return nil
}

func (d *Driver) Shutdown() {}

// HandleInterrupt is a no-op: this driver's read/write paths are
// synchronous polling operations rather than IRQ-driven, per spec.md
// §4.7's PIO description.
func (d *Driver) HandleInterrupt() {}

// decodeModelString byte-swaps each 16-bit word (the ATA string
// convention: each word's bytes are big-endian within the word) and
// trims trailing spaces.
func decodeModelString(words []uint16) string {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		buf[i*2] = byte(w >> 8)
		buf[i*2+1] = byte(w)
	}
	end := len(buf)
	for end > 0 && buf[end-1] == ' ' {
		end--
	}
	return string(buf[:end])
}

func (d *Driver) waitBusyClear() error {
	for i := 0; i < config.ATAMaxPolls; i++ {
		if d.ports.InB(d.base+regStatus)&statusBusy == 0 {
			return nil
		}
	}
	return ErrTimeout
}

func (d *Driver) waitDRQ() error {
	if err := d.waitBusyClear(); err != nil {
		return err
	}
	for i := 0; i < config.ATAMaxPolls; i++ {
		if d.ports.InB(d.base+regStatus)&statusDRQ != 0 {
			return nil
		}
	}
	return ErrTimeout
}

func (d *Driver) setupLBA28(lba uint32) {
	d.ports.OutB(d.base+regDrive, driveSelectLBAMaster|uint8((lba>>24)&0x0F))
	d.ports.OutB(d.base+regSectorCt, 1)
	d.ports.OutB(d.base+regLBALow, uint8(lba))
	d.ports.OutB(d.base+regLBAMid, uint8(lba>>8))
	d.ports.OutB(d.base+regLBAHigh, uint8(lba>>16))
}

// ReadSector reads 512 bytes from lba into buf, which must be at
// least 512 bytes long, per spec.md §4.7.
func (d *Driver) ReadSector(lba uint32, buf []byte) error {
	if len(buf) < sectorBytes {
		return errors.New("ata: buffer smaller than one sector")
	}
	d.setupLBA28(lba)
	d.ports.OutB(d.base+regCommand, cmdReadSectors)

	if err := d.waitDRQ(); err != nil {
		return err
	}
	for i := 0; i < sectorWords; i++ {
		w := d.ports.InW(d.base + regData)
		buf[i*2] = uint8(w)
		buf[i*2+1] = uint8(w >> 8)
	}
	return nil
}

// WriteSector writes 512 bytes from buf to lba, then flushes the
// write cache, per spec.md §4.7.
func (d *Driver) WriteSector(lba uint32, buf []byte) error {
	if len(buf) < sectorBytes {
		return errors.New("ata: buffer smaller than one sector")
	}
	d.setupLBA28(lba)
	d.ports.OutB(d.base+regCommand, cmdWriteSectors)

	if err := d.waitDRQ(); err != nil {
		return err
	}
	for i := 0; i < sectorWords; i++ {
		w := uint16(buf[i*2]) | uint16(buf[i*2+1])<<8
		d.ports.OutW(d.base+regData, w)
	}
	d.ports.OutB(d.base+regCommand, cmdCacheFlush)
	return d.waitBusyClear()
}
