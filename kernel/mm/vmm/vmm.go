package vmm

import (
	"nucleus/kernel"
	"nucleus/kernel/cpu"
	"nucleus/kernel/mm"
)

var (
	// switchPDTFn is mocked by tests and is automatically inlined by the
	// compiler.
	switchPDTFn = cpu.SwitchPDT

	// pml4Frame holds the physical frame backing the kernel's top-level
	// page table. There is exactly one address space in this core: user
	// address spaces and inactive page directories are out of scope.
	pml4Frame mm.Frame
)

// Init allocates and zeroes the kernel's PML4, identity-maps the physical
// range [0, identityMapEnd) with present+writable permissions, and installs
// the page-fault and general-protection-fault handlers. It does not enable
// paging; call Enable once Init has returned successfully.
func Init(identityMapEnd uintptr) *kernel.Error {
	frame, err := mm.AllocFrame()
	if err != nil {
		return err
	}

	pml4Frame = frame
	kernel.Memset(uintptr(ptePtrFn(pml4Frame.Address())), 0, mm.PageSize)

	if err = IdentityMapRegion(0, identityMapEnd, FlagPresent|FlagRW); err != nil {
		return err
	}

	installFaultHandlers()

	return nil
}

// Enable loads the kernel PML4 into CR3, activating paging.
func Enable() {
	switchPDTFn(pml4Frame.Address())
}
