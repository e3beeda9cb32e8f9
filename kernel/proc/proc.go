// Package proc implements process control blocks: creation, the fixed
// process table, and the per-process saved register context that the
// scheduler swaps in and out on every timer tick.
package proc

import (
	"nucleus/kernel"
	"nucleus/kernel/cpu"
	"nucleus/kernel/gate"
	"nucleus/kernel/heap"
)

// MaxProcesses bounds the process table; pid 0 is reserved for the idle/
// kernel process created by Init.
const MaxProcesses = 64

// DefaultStackSize is the stack allocation handed to every process created
// via Create.
const DefaultStackSize = 8192

// defaultTickBudget is the number of timer ticks a process may run before
// the scheduler preempts it.
const defaultTickBudget = 10

// State is a process's position in its lifecycle.
type State uint8

const (
	Ready State = iota
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// PCB is a process control block.
type PCB struct {
	PID   uint32
	State State

	// Context is the saved general-purpose register and program-counter
	// state for this process. While the process is Running it is stale;
	// the scheduler only writes it back on the tick that preempts it, by
	// copying the live interrupt frame into it.
	Context gate.Registers

	// CR3 is this process's root page table physical address. This core
	// uses a single address space for every process, so it is always the
	// kernel PML4's address, but is tracked per-PCB to match the contract
	// that a context switch is a full register and CR3 reload.
	CR3 uintptr

	StackBase uintptr
	StackSize uintptr

	TickBudget uint32

	// Next links this PCB into the scheduler's circular ready queue. It is
	// nil while the PCB is not queued.
	Next *PCB
}

var (
	table   [MaxProcesses]*PCB
	nextPID uint32 = 1
	current *PCB

	// allocFn/freeFn are mocked by tests so process stacks can be backed
	// by ordinary Go memory instead of the real kernel heap.
	allocFn = heap.Alloc
	freeFn  = heap.Free

	errTableFull = &kernel.Error{Module: "proc", Message: "process table is full"}
)

// Init resets the process table and installs the idle process (pid 0),
// which runs on the kernel's own boot stack and is always Running unless
// another process is scheduled in its place.
func Init() {
	for i := range table {
		table[i] = nil
	}
	nextPID = 1

	idle := &PCB{PID: 0, State: Running}
	table[0] = idle
	current = idle
}

// Create allocates a DefaultStackSize-byte stack from the kernel heap (the
// PCB itself is an ordinary Go allocation, not a heap block), seeds the
// context so the process begins executing at entry on a fresh
// 16-byte-aligned stack with interrupts enabled, and installs it Ready in
// the process table. It does not add the process to any scheduler queue.
func Create(entry uintptr) (*PCB, *kernel.Error) {
	return CreateWithStack(entry, DefaultStackSize)
}

// CreateWithStack behaves like Create but lets the caller size the stack.
func CreateWithStack(entry uintptr, stackSize uintptr) (*PCB, *kernel.Error) {
	if nextPID >= MaxProcesses {
		return nil, errTableFull
	}

	stackBase := allocFn(stackSize)
	stackTop := (stackBase + stackSize - 16) &^ 15

	p := &PCB{
		PID:        nextPID,
		State:      Ready,
		StackBase:  stackBase,
		StackSize:  stackSize,
		TickBudget: defaultTickBudget,
		CR3:        activeCR3Fn(),
	}
	p.Context.RIP = uint64(entry)
	p.Context.RSP = uint64(stackTop)
	p.Context.RBP = uint64(stackTop)
	p.Context.RFlags = 0x202
	p.Context.CS = kernelCodeSelector
	p.Context.SS = kernelDataSelector

	table[nextPID] = p
	nextPID++

	return p, nil
}

// activeCR3Fn is mocked by tests; in production it resolves to the active
// page table's physical address at process-creation time. This core has a
// single address space, so every process is seeded with the same CR3 that
// was active when vmm.Enable ran.
var activeCR3Fn = cpu.ActivePDT

const (
	kernelCodeSelector = 0x08
	kernelDataSelector = 0x10
)

// Exit marks proc Terminated, frees its stack, and removes it from the
// process table. Exiting the idle process (pid 0) is refused with an error
// and changes nothing.
func Exit(p *PCB) *kernel.Error {
	if p.PID == 0 {
		return &kernel.Error{Module: "proc", Message: "cannot exit the idle process"}
	}

	p.State = Terminated
	freeFn(p.StackBase)
	table[p.PID] = nil

	if current == p {
		current = nil
	}

	return nil
}

// Current returns the process the scheduler most recently marked Running.
func Current() *PCB {
	return current
}

// SetCurrent records p as the Running process. The scheduler calls this
// after a switch decision; it does not itself change p.State.
func SetCurrent(p *PCB) {
	current = p
}

// Get returns the PCB for pid, or nil if the slot is empty or out of range.
func Get(pid uint32) *PCB {
	if pid >= MaxProcesses {
		return nil
	}
	return table[pid]
}
