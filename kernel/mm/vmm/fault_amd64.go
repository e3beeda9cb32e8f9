package vmm

import (
	"nucleus/kernel"
	"nucleus/kernel/cpu"
	"nucleus/kernel/gate"
	"nucleus/kernel/kfmt"
)

var (
	// readCR2Fn is mocked by tests and is automatically inlined by the
	// compiler.
	readCR2Fn = cpu.ReadCR2

	// handleInterruptFn is mocked by tests and is automatically inlined
	// by the compiler.
	handleInterruptFn = gate.HandleInterrupt

	errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "page/gpf fault"}
)

// installFaultHandlers wires the page-fault and general-protection-fault
// vectors to this package's handlers. This core does not support demand
// paging or copy-on-write; any fault is therefore unrecoverable and results
// in a kernel panic after the faulting address and register state have been
// reported.
func installFaultHandlers() {
	handleInterruptFn(gate.PageFaultException, 0, pageFaultHandler)
	handleInterruptFn(gate.GPFException, 0, generalProtectionFaultHandler)
}

func pageFaultHandler(regs *gate.Registers) {
	faultAddress := uintptr(readCR2Fn())

	kfmt.Printf("\nPage fault while accessing address: 0x%16x\nReason: ", faultAddress)
	switch regs.Info {
	case 0:
		kfmt.Printf("read from non-present page")
	case 1:
		kfmt.Printf("page protection violation (read)")
	case 2:
		kfmt.Printf("write to non-present page")
	case 3:
		kfmt.Printf("page protection violation (write)")
	case 4:
		kfmt.Printf("page-fault in user-mode")
	case 8:
		kfmt.Printf("page table has reserved bit set")
	case 16:
		kfmt.Printf("instruction fetch")
	default:
		kfmt.Printf("unknown")
	}

	kfmt.Printf("\n\nRegisters:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	kfmt.Panic(errUnrecoverableFault)
}

func generalProtectionFaultHandler(regs *gate.Registers) {
	kfmt.Printf("\nGeneral protection fault while accessing address: 0x%x\n", readCR2Fn())
	kfmt.Printf("Registers:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	kfmt.Panic(errUnrecoverableFault)
}
