// Package kmain wires together every other package in this tree into the
// kernel's single entrypoint. It lives apart from the root kernel package
// (which only holds leaf utilities like kernel.Error and kernel.InterruptGuard)
// precisely so it can import heap, pmm, vmm, proc and the rest without
// creating an import cycle back into kernel.
package kmain

import (
	"reflect"

	"nucleus/kernel/console"
	"nucleus/kernel/cpu"
	"nucleus/kernel/gate"
	"nucleus/kernel/heap"
	"nucleus/kernel/kfmt"
	"nucleus/kernel/mm/pmm"
	"nucleus/kernel/mm/vmm"
	"nucleus/kernel/pic"
	"nucleus/kernel/proc"
	"nucleus/kernel/sched"
	"nucleus/kernel/timer"
)

// heapEnd and totalMemory describe the memory map this core boots with; the
// bootloader trampoline is expected to patch them (or the rt0 stub passes
// them in) before Kmain runs. They default to a conservative 32MiB image
// with a 2MiB reserved low region, matching the bootstrap identity mapping.
var (
	heapEnd     uintptr = 0x200000
	totalMemory uintptr = 0x2000000

	timerFrequency uint32 = 100

	// identityMapEnd is the extent of the bootstrap identity mapping:
	// the first 4MiB, covering the kernel image and its early stack.
	identityMapEnd uintptr = 0x400000
)

// Kmain is the kernel's single entrypoint, invoked by the rt0 trampoline
// once long mode, the GDT, and a minimal stack are in place. It performs
// the fixed initialization sequence this core requires: enabling
// interrupts before the IDT is loaded, or allocating from the heap before
// paging is enabled, are both fatal ordering bugs that this function's
// structure makes impossible to introduce by accident.
//
//go:noinline
func Kmain() {
	// 1. console
	con := console.New()
	kfmt.SetOutputSink(con)
	kfmt.Printf("booting\n")

	// 2. IDT
	gate.Init()

	// 3. PIC remap (all IRQs masked)
	pic.Remap()

	// 4. PMM
	if err := pmm.Init(heapEnd, totalMemory); err != nil {
		kfmt.Panic(err)
	}

	// 5. paging init + enable
	if err := vmm.Init(identityMapEnd); err != nil {
		kfmt.Panic(err)
	}
	vmm.Enable()

	// 6. heap init
	if err := heap.Init(); err != nil {
		kfmt.Panic(err)
	}

	// 7. process/scheduler init, seed processes
	proc.Init()
	sched.Init()

	for _, entry := range []func(){kernelThreadA, kernelThreadB, kernelThreadC} {
		p, err := proc.Create(entryOf(entry))
		if err != nil {
			kfmt.Panic(err)
		}
		sched.Add(p)
	}

	// 8. PIT program
	timer.Init(timerFrequency, sched.Tick)

	// 9. unmask IRQ0/IRQ1
	pic.Unmask(0)
	pic.Unmask(1)

	// 10. sti
	cpu.EnableInterrupts()

	for {
		cpu.Halt()
	}
}

// kernelThreadA, kernelThreadB and kernelThreadC are the core's seeded
// kernel threads: equal busy loops, one per letter, that never yield or
// block. With three runnable processes and nothing else contending for the
// CPU, the scheduler's timer-driven preemption alone must keep their
// output shares even.
func kernelThreadA() { busyPrintLoop("A") }
func kernelThreadB() { busyPrintLoop("B") }
func kernelThreadC() { busyPrintLoop("C") }

func busyPrintLoop(s string) {
	for {
		kfmt.Printf(s)
	}
}

// entryOf returns a kernel thread function's code address for use as
// proc.Create's entry argument. reflect.Value.Pointer is the documented way
// to obtain a func value's entry PC without resorting to unsafe address
// arithmetic of our own, in the same spirit as this tree's existing use of
// reflect.SliceHeader to overlay slices on raw addresses.
func entryOf(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
