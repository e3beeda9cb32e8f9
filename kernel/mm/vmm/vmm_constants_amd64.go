package vmm

const (
	// pageLevels indicates the number of page table levels used by the
	// amd64 4-level paging scheme: PML4, PDPT, PD and PT.
	pageLevels = 4

	// ptePhysPageMask extracts the physical frame address encoded in a
	// page table entry (bits 12-51).
	ptePhysPageMask = uintptr(0x000ffffffffff000)
)

var (
	// pageLevelBits defines the number of virtual address bits consumed
	// by each page table level. Each level indexes a 512-entry table.
	pageLevelBits = [pageLevels]uint8{9, 9, 9, 9}

	// pageLevelShifts defines the bit offset of each page table level's
	// index field within a virtual address.
	pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}
)

const (
	// FlagPresent is set when the page is mapped to a physical frame.
	FlagPresent PageTableEntryFlag = 1 << 0

	// FlagRW is set if the page can be written to.
	FlagRW PageTableEntryFlag = 1 << 1

	// FlagUser is set if user-mode code may access this page. This core
	// never installs user-mode mappings but the bit is retained since it
	// is part of the architectural entry format.
	FlagUser PageTableEntryFlag = 1 << 2

	// FlagHugePage marks a 2MiB/1GiB leaf entry instead of a pointer to
	// the next table level. Map and Unmap never set it; if they meet it on
	// an intermediate entry, Map returns an error and Unmap stops.
	FlagHugePage PageTableEntryFlag = 1 << 7
)
