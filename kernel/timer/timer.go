// Package timer programs the legacy PIT (programmable interval timer)
// channel 0 as the kernel's preemption tick source and wires its IRQ0
// vector to invoke the scheduler on every fire.
package timer

import (
	"nucleus/kernel/cpu"
	"nucleus/kernel/gate"
	"nucleus/kernel/pic"
	"nucleus/kernel/sync"
)

const (
	pitChannel0 = 0x40
	pitCommand  = 0x43
	pitBaseFreq = 1193182

	rateGeneratorLoHi = 0x36
)

var (
	outbFn            = cpu.Outb
	handleInterruptFn = gate.HandleInterrupt
	sendEOIFn         = pic.SendEOI

	// onTick is invoked, with interrupts disabled, from inside the IRQ0
	// handler on every tick after the counter has been bumped. regs is the
	// saved interrupt frame for the process that was running; a scheduler
	// hook that decides to switch processes does so by overwriting *regs
	// in place (and reloading CR3), since IRETQ resumes whatever frame it
	// finds on return. It is nil until Init is called with a hook.
	onTick func(regs *gate.Registers)

	tickLock sync.Spinlock
	ticks    uint64
)

// Init programs PIT channel 0 in rate-generator mode with a divisor of
// 1193182/hz and installs the IRQ0 handler that increments the tick
// counter and invokes tick on every fire. It does not unmask IRQ0; callers
// must do so once the rest of boot has completed.
func Init(hz uint32, tick func(regs *gate.Registers)) {
	onTick = tick

	divisor := pitBaseFreq / hz

	outbFn(pitCommand, rateGeneratorLoHi)
	outbFn(pitChannel0, uint8(divisor&0xFF))
	outbFn(pitChannel0, uint8((divisor>>8)&0xFF))

	handleInterruptFn(gate.IRQ0, 0, handleIRQ0)
}

// Ticks returns the number of timer interrupts serviced since Init.
func Ticks() uint64 {
	tickLock.Acquire()
	defer tickLock.Release()
	return ticks
}

func handleIRQ0(regs *gate.Registers) {
	tickLock.Acquire()
	ticks++
	tickLock.Release()

	if onTick != nil {
		onTick(regs)
	}

	sendEOIFn(0)
}
