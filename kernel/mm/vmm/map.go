package vmm

import (
	"nucleus/kernel"
	"nucleus/kernel/cpu"
	"nucleus/kernel/mm"
	"unsafe"
)

var (
	// flushTLBEntryFn is mocked by tests and is automatically inlined by
	// the compiler.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// rootTableAddrFn returns the physical address of the active PML4.
	// It is mocked by tests so that walk() can operate on a table backed
	// by ordinary Go-allocated memory instead of an arbitrary physical
	// address.
	rootTableAddrFn = func() uintptr { return pml4Frame.Address() }

	// ptePtrFn resolves a page table entry's address to a pointer. It is
	// mocked by tests for the same reason as rootTableAddrFn.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer { return unsafe.Pointer(entryAddr) }

	errNoHugePageSupport = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

// pageTableEntry describes a single page table entry. The intermediate and
// leaf table formats are identical on amd64: bits 12-51 hold a physical
// frame address and the low/high bits hold flags.
type pageTableEntry uintptr

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// SetFlags sets the input list of flags on the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uintptr(*pte) &^ uintptr(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame((uintptr(pte) & ptePhysPageMask) >> mm.PageShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | frame.Address())
}

// pageTableWalker is invoked by walk() once per page table level that was
// visited while resolving a virtual address. Returning false aborts the
// walk.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk resolves a virtual address through the active PML4, invoking walkFn
// at each of the four table levels. Because the kernel's bootstrap mapping
// is a 1:1 identity mapping, every intermediate table's physical address
// doubles as a valid virtual address: walk can dereference page table
// entries directly via unsafe.Pointer without any recursive-mapping trick.
func walk(virtAddr uintptr, walkFn pageTableWalker) {
	tableAddr := rootTableAddrFn()

	for level := uint8(0); level < pageLevels; level++ {
		entryIndex := (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entryAddr := tableAddr + (entryIndex << mm.PointerShift)
		pte := (*pageTableEntry)(ptePtrFn(entryAddr))

		if !walkFn(level, pte) {
			return
		}

		tableAddr = pte.Frame().Address()
	}
}

// Map establishes a mapping between a virtual page and a physical memory
// frame in the active PML4, allocating and zeroing any missing intermediate
// table along the way. Intermediate tables are always installed with
// Present|RW; the leaf entry receives exactly the supplied flags.
func Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error

	walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		if pteLevel == pageLevels-1 {
			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			flushTLBEntryFn(page.Address())
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		if !pte.HasFlags(FlagPresent) {
			newTableFrame, allocErr := mm.AllocFrame()
			if allocErr != nil {
				err = allocErr
				return false
			}

			kernel.Memset(uintptr(ptePtrFn(newTableFrame.Address())), 0, mm.PageSize)

			*pte = 0
			pte.SetFrame(newTableFrame)
			pte.SetFlags(FlagPresent | FlagRW)
		}

		return true
	})

	return err
}

// IdentityMapRegion establishes an identity mapping (virtual address ==
// physical address) for the physical memory region starting at startFrame
// and spanning size bytes, rounded up to the nearest page boundary.
func IdentityMapRegion(startFrame mm.Frame, size uintptr, flags PageTableEntryFlag) *kernel.Error {
	pageCount := mm.Page(((size + (mm.PageSize - 1)) &^ (mm.PageSize - 1)) >> mm.PageShift)
	startPage := mm.Page(startFrame)

	for curPage := startPage; curPage < startPage+pageCount; curPage++ {
		frame := mm.Frame(curPage)
		if err := Map(curPage, frame, flags); err != nil {
			return err
		}
	}

	return nil
}

// Unmap removes a mapping previously installed via Map. Per the paging
// contract, Unmap silently does nothing if any intermediate table along the
// path is not present; otherwise it clears the leaf entry and flushes the
// TLB entry for the affected virtual address.
func Unmap(page mm.Page) {
	walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			*pte = 0
			flushTLBEntryFn(page.Address())
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			return false
		}

		return true
	})
}

// Translate returns the physical address that corresponds to the supplied
// virtual address, or 0 if any page table level along the path is not
// present.
func Translate(virtAddr uintptr) uintptr {
	var physAddr uintptr

	walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			physAddr = 0
			return false
		}

		if pteLevel == pageLevels-1 {
			physAddr = pte.Frame().Address() + PageOffset(virtAddr)
			return false
		}

		return true
	})

	return physAddr
}

// PageOffset returns the offset within the 4KiB page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mm.PageSize - 1)
}
