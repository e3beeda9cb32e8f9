// Package pic drives the legacy 8259A programmable interrupt controller
// pair, remapping the master and slave so their vectors no longer collide
// with CPU exceptions, and provides masking and end-of-interrupt support.
package pic

import "nucleus/kernel/cpu"

const (
	master        = 0x20
	masterCommand = master
	masterData    = master + 1

	slave        = 0xA0
	slaveCommand = slave
	slaveData    = slave + 1

	icw1Init = 0x10
	icw1ICW4 = 0x01
	icw4_8086 = 0x01

	// MasterOffset is the vector the master PIC's IRQ0 is remapped to.
	MasterOffset = 0x20
	// SlaveOffset is the vector the slave PIC's IRQ8 is remapped to.
	SlaveOffset = 0x28

	eoiCode = 0x20
)

var (
	outbFn = cpu.Outb
	inbFn  = cpu.Inb
)

// Remap reprograms both PICs so the master starts at MasterOffset and the
// slave at SlaveOffset, wires the master/slave cascade on IRQ2, and selects
// 8086 mode. Every IRQ line on both controllers starts masked; callers must
// explicitly Unmask the lines they intend to service.
func Remap() {
	outbFn(masterCommand, icw1Init|icw1ICW4)
	outbFn(slaveCommand, icw1Init|icw1ICW4)

	outbFn(masterData, MasterOffset)
	outbFn(slaveData, SlaveOffset)

	outbFn(masterData, 0x04) // slave attached to master's IRQ2
	outbFn(slaveData, 0x02)  // slave identifies itself as cascaded on IRQ2

	outbFn(masterData, icw4_8086)
	outbFn(slaveData, icw4_8086)

	outbFn(masterData, 0xFF)
	outbFn(slaveData, 0xFF)
}

// Unmask clears the mask bit for irq (0-15), allowing the PIC to deliver it.
func Unmask(irq uint8) {
	if irq < 8 {
		port := uint16(masterData)
		mask := inbFn(port)
		mask &^= 1 << irq
		outbFn(port, mask)
		return
	}

	port := uint16(slaveData)
	mask := inbFn(port)
	mask &^= 1 << (irq - 8)
	outbFn(port, mask)
}

// Mask sets the mask bit for irq (0-15), blocking the PIC from delivering it.
func Mask(irq uint8) {
	if irq < 8 {
		port := uint16(masterData)
		mask := inbFn(port)
		mask |= 1 << irq
		outbFn(port, mask)
		return
	}

	port := uint16(slaveData)
	mask := inbFn(port)
	mask |= 1 << (irq - 8)
	outbFn(port, mask)
}

// SendEOI acknowledges irq, unblocking further delivery of it (and, for
// irq >= 8, any pending master-side IRQ2 cascade notification) from the PIC.
func SendEOI(irq uint8) {
	if irq >= 8 {
		outbFn(slaveCommand, eoiCode)
	}
	outbFn(masterCommand, eoiCode)
}
