package kernel

import "nucleus/kernel/cpu"

var (
	// interruptsEnabledFn, enableInterruptsFn and disableInterruptsFn are
	// mocked by tests so the guard's behavior can be verified without
	// touching the real RFLAGS register.
	interruptsEnabledFn = cpu.InterruptsEnabled
	enableInterruptsFn  = cpu.EnableInterrupts
	disableInterruptsFn = cpu.DisableInterrupts
)

// InterruptGuard disables interrupts and returns whether they were enabled
// beforehand, so the caller can restore the prior state rather than
// unconditionally re-enabling them. It implements the cli/sti discipline
// expected around critical sections that mutate process-global state (the
// PMM bitmap, the heap list, the ready queue) from process context; inside
// an interrupt handler IF is already clear courtesy of the interrupt gate,
// so nesting a guard there is harmless but redundant.
func InterruptGuard() (wasEnabled bool) {
	wasEnabled = interruptsEnabledFn()
	disableInterruptsFn()
	return wasEnabled
}

// EndInterruptGuard restores the interrupt-enable state captured by a
// matching InterruptGuard call.
func EndInterruptGuard(wasEnabled bool) {
	if wasEnabled {
		enableInterruptsFn()
	}
}
