package gate

import (
	"io"
	"nucleus/kernel/kfmt"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Vector is the interrupt/exception/IRQ number that fired, as seen by
	// the assembly entry stub. It is pushed by the stub itself, not by
	// the CPU.
	Vector uint64

	// Info contains the exception error code for exceptions that push
	// one. It is 0 for every other vector, including hardware interrupts,
	// for which the entry stub pushes 0 in its place.
	Info uint64

	// The return frame automatically pushed by the CPU and consumed by IRETQ.
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "Vector = %d Info = %16x\n", r.Vector, r.Info)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// InterruptNumber describes an x86 interrupt/exception/IRQ vector.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Overflow occurs when an overflow occurs (e.g result of division
	// cannot fit into the registers used).
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to invoke a present
	// gate with an invalid stack segment selector.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack base/limit checks
	// fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException occurs while invoking an FP instruction with
	// CR0.NE set or an unmasked FP exception pending.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set.
	SIMDFloatingPointException = InterruptNumber(19)

	// IRQ0 is the remapped vector for the PIT timer (master PIC, line 0).
	IRQ0 = InterruptNumber(32)

	// IRQ1 is the remapped vector for the keyboard controller (master
	// PIC, line 1).
	IRQ1 = InterruptNumber(33)
)

// maxVector is the number of IDT vectors; handlers holds one slot per
// vector. installIDT() populates gates for only a fixed subset of them at
// boot. HandleInterrupt stores a callback for any vector but does not
// create gates at runtime, so a callback for a vector without a gate never
// runs.
const maxVector = 256

var handlers [maxVector]func(*Registers)

// Init runs the CPU-specific initialization code for enabling support for
// interrupt handling: it builds the IDT (with gates for every vector this
// core knows about) and loads it via LIDT.
func Init() {
	installIDT()
	installDefaultExceptionHandlers()
}

// HandleInterrupt registers handler to be invoked whenever the CPU services
// intNumber. istOffset is accepted for API symmetry with the original
// design (interrupt stack table selection) but is unused: this core does
// not set up a TSS, so every gate runs on the interrupted stack.
func HandleInterrupt(intNumber InterruptNumber, istOffset uint8, handler func(*Registers)) {
	_ = istOffset
	handlers[intNumber] = handler
}

// dispatchInterrupt is called by the shared assembly trampoline with a
// pointer to the saved register/frame state; the vector that fired is
// carried in regs.Vector. It looks up and invokes the registered Go
// handler, if any. Runs on the interrupted stack with interrupts disabled.
//
//go:nosplit
func dispatchInterrupt(regs *Registers) {
	if h := handlers[uint8(regs.Vector)]; h != nil {
		h(regs)
	}
}

// installIDT populates the IDT with gate descriptors for every vector this
// core services and loads it into the CPU via LIDT. All other vectors are
// left marked as not-present.
func installIDT()
