package kernel

import "testing"

func TestInterruptGuardDisablesAndReportsPriorState(t *testing.T) {
	origEnabled, origEnable, origDisable := interruptsEnabledFn, enableInterruptsFn, disableInterruptsFn
	defer func() {
		interruptsEnabledFn, enableInterruptsFn, disableInterruptsFn = origEnabled, origEnable, origDisable
	}()

	disableCalls := 0
	interruptsEnabledFn = func() bool { return true }
	disableInterruptsFn = func() { disableCalls++ }

	wasEnabled := InterruptGuard()

	if !wasEnabled {
		t.Fatal("expected InterruptGuard to report interrupts were enabled")
	}
	if disableCalls != 1 {
		t.Fatalf("expected exactly one DisableInterrupts call, got %d", disableCalls)
	}
}

func TestEndInterruptGuardRestoresOnlyWhenPreviouslyEnabled(t *testing.T) {
	origEnable := enableInterruptsFn
	defer func() { enableInterruptsFn = origEnable }()

	enableCalls := 0
	enableInterruptsFn = func() { enableCalls++ }

	EndInterruptGuard(false)
	if enableCalls != 0 {
		t.Fatalf("expected no EnableInterrupts call when wasEnabled=false, got %d", enableCalls)
	}

	EndInterruptGuard(true)
	if enableCalls != 1 {
		t.Fatalf("expected exactly one EnableInterrupts call when wasEnabled=true, got %d", enableCalls)
	}
}
