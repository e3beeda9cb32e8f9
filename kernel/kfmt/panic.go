package kfmt

import (
	"nucleus/kernel"
	"nucleus/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	// disableInterruptsFn is mocked by tests and is automatically inlined by
	// the compiler.
	disableInterruptsFn = cpu.DisableInterrupts

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error to the console and halts the CPU with
// interrupts disabled. Calls to Panic never return. It is the single fatal
// sink for all three error taxa described by the kernel's error handling
// design: heap/PMM corruption, CPU exceptions and unrecoverable Go values.
// Panic does not allocate and may be called from inside an interrupt
// handler.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	disableInterruptsFn()

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
