//go:build kernel386

package idt

import (
	"unsafe"

	"github.com/ringkrnl/ringkrnl/internal/config"
	"github.com/ringkrnl/ringkrnl/internal/ioport"
)

// idtr is the 6-byte pseudo-descriptor the LIDT instruction reads:
// table limit (size-1) followed by the table's linear base address.
type idtr struct {
	limit uint16
	base  uint32
}

//go:linkname loadIDT loadIDT
//go:nosplit
func loadIDT(addr uintptr)

// Install loads t onto the CPU via LIDT. t must remain alive and
// unmoved for as long as interrupts are enabled, so callers construct
// it as a package-level or heap-pinned value, never a stack local that
// could be reclaimed.
func (t *Table) Install() {
	d := idtr{
		limit: uint16(unsafe.Sizeof(t.Gates) - 1),
		base:  uint32(uintptr(unsafe.Pointer(&t.Gates[0]))),
	}
	loadIDT(uintptr(unsafe.Pointer(&d)))
}

// RemapPIC reprograms the 8259 PIC pair so hardware IRQs 0-15 land on
// vectors masterBase..masterBase+7 and masterBase+8..masterBase+15,
// moving them off the CPU's reserved exception vectors 0-31. The ICW
// sequence and bit names follow the conventional PC PIC initialization
// sequence (ICW1 init+ICW4, ICW2 vector offset, ICW3 cascade wiring,
// ICW4 8086 mode), matching the constant layout a pic_constants.go
// style table spells out. The final masks are the spec-mandated ones
// (config.PICMasterMask/PICSlaveMask), not whatever the BIOS left
// behind -- leaving the pre-remap mask in place would, on real/QEMU
// hardware where the BIOS default is all-masked, permanently mask the
// timer and keyboard lines this kernel depends on.
func RemapPIC(masterBase, slaveBase uint8) {
	const (
		icw1InitICW4 = 0x11
		icw4Mode8086 = 0x01
	)

	ioport.OutB(config.PortPICMasterCmd, icw1InitICW4)
	ioport.Wait()
	ioport.OutB(config.PortPICSlaveCmd, icw1InitICW4)
	ioport.Wait()

	ioport.OutB(config.PortPICMasterData, masterBase)
	ioport.Wait()
	ioport.OutB(config.PortPICSlaveData, slaveBase)
	ioport.Wait()

	ioport.OutB(config.PortPICMasterData, 0x04) // slave attached to IRQ2
	ioport.Wait()
	ioport.OutB(config.PortPICSlaveData, 0x02) // cascade identity
	ioport.Wait()

	ioport.OutB(config.PortPICMasterData, icw4Mode8086)
	ioport.Wait()
	ioport.OutB(config.PortPICSlaveData, icw4Mode8086)
	ioport.Wait()

	ioport.OutB(config.PortPICMasterData, config.PICMasterMask)
	ioport.OutB(config.PortPICSlaveData, config.PICSlaveMask)
}

// SendEOI acknowledges an IRQ at the PIC so further interrupts on that
// line (and, for the slave PIC, its cascade line) can be delivered.
func SendEOI(irq uint8) {
	const eoiCmd = 0x20
	if irq >= config.PICSlaveThreshold-config.VectorIRQBase {
		ioport.OutB(config.PortPICSlaveCmd, eoiCmd)
	}
	ioport.OutB(config.PortPICMasterCmd, eoiCmd)
}
