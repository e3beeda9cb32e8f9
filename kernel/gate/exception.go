package gate

import "nucleus/kernel/kfmt"

// exceptionVectors lists every CPU exception vector this core wires a gate
// for (mirrors the GATE(...) list in installIDT, minus the two IRQ
// vectors). Each gets genericExceptionHandler registered as its default
// handler in Init; a subsystem that needs richer reporting (package vmm,
// for the page-fault and general-protection-fault vectors) overrides its
// entry afterwards by calling HandleInterrupt again.
var exceptionVectors = []InterruptNumber{
	DivideByZero,
	NMI,
	Overflow,
	BoundRangeExceeded,
	InvalidOpcode,
	DeviceNotAvailable,
	DoubleFault,
	InvalidTSS,
	SegmentNotPresent,
	StackSegmentFault,
	GPFException,
	PageFaultException,
	FloatingPointException,
	AlignmentCheck,
	MachineCheck,
	SIMDFloatingPointException,
}

// exceptionMnemonics gives the human-readable name of each exception
// vector, printed by genericExceptionHandler and matched verbatim by this
// core's divide-by-zero test scenario.
var exceptionMnemonics = map[InterruptNumber]string{
	DivideByZero:               "Divide by Zero",
	NMI:                        "Non-Maskable Interrupt",
	Overflow:                   "Overflow",
	BoundRangeExceeded:         "Bound Range Exceeded",
	InvalidOpcode:              "Invalid Opcode",
	DeviceNotAvailable:         "Device Not Available",
	DoubleFault:                "Double Fault",
	InvalidTSS:                 "Invalid TSS",
	SegmentNotPresent:          "Segment Not Present",
	StackSegmentFault:          "Stack Segment Fault",
	GPFException:               "General Protection Fault",
	PageFaultException:         "Page Fault",
	FloatingPointException:     "Floating Point Exception",
	AlignmentCheck:             "Alignment Check",
	MachineCheck:               "Machine Check",
	SIMDFloatingPointException: "SIMD Floating Point Exception",
}

var (
	// panicFn, clearScreenFn and printfFn are mocked by tests so
	// genericExceptionHandler can be exercised without a real console or a
	// halting Panic call.
	panicFn       = kfmt.Panic
	clearScreenFn = kfmt.ClearScreen
	printfFn      = kfmt.Printf
)

func mnemonic(vec InterruptNumber) string {
	if name, ok := exceptionMnemonics[vec]; ok {
		return name
	}
	return "Unknown Exception"
}

// genericExceptionHandler is the baseline handler installed for every CPU
// exception vector: clear the screen, print the mnemonic and the hardware
// error code, then panic (which disables interrupts and halts). CPU
// exceptions are unrecoverable by design; nothing in this core attempts to
// resume after one.
func genericExceptionHandler(regs *Registers) {
	clearScreenFn()
	printfFn("\n*** %s (vector %d) ***\n", mnemonic(InterruptNumber(regs.Vector)), regs.Vector)
	printfFn("error code: 0x%x\n\n", regs.Info)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn("unhandled CPU exception")
}

// installDefaultExceptionHandlers registers genericExceptionHandler for
// every vector in exceptionVectors. Called once from Init, before any
// subsystem has had a chance to install a more specific handler.
func installDefaultExceptionHandlers() {
	for _, vec := range exceptionVectors {
		HandleInterrupt(vec, 0, genericExceptionHandler)
	}
}
