// Package heap implements a first-fit, split/coalesce physical-style
// allocator backed by a single fixed-size virtual region. It is the
// kernel's only general-purpose allocator; process stacks come from it,
// while the process control blocks in package proc are ordinary Go
// allocations.
package heap

import (
	"nucleus/kernel"
	"nucleus/kernel/kfmt"
	"nucleus/kernel/mm"
	"nucleus/kernel/mm/vmm"
	"nucleus/kernel/sync"
	"unsafe"
)

const (
	// magic tags every header, allocated or free. Any header read back
	// with a different value indicates heap corruption.
	magic = uint32(0xDEADBEEF)

	// baseAddr is the virtual base address of the heap region.
	baseAddr = uintptr(0x10000000)

	// regionSize is the total size of the heap's virtual reservation.
	regionSize = uintptr(0x100000)

	// minSplitPayload is the smallest payload size (in bytes) a split-off
	// remainder block is allowed to have; splits that would leave less
	// than this are skipped and the whole block is handed out instead.
	minSplitPayload = uintptr(16)

	// alignment is the byte boundary that every requested size is rounded
	// up to.
	alignment = uintptr(16)
)

// header immediately precedes every block (allocated or free) in the
// region. The heap is a singly-linked intrusive list ordered by address;
// next == 0 terminates the list.
type header struct {
	magic  uint32
	size   uint32
	isFree uint8
	_      [7]byte
	next   uintptr
}

var headerSize = unsafe.Sizeof(header{})

var (
	lock sync.Spinlock

	// base is the address of the first header in the region. It is a var
	// rather than a constant so tests can point it at memory backed by an
	// ordinary Go slice instead of the real virtual address.
	base = baseAddr

	// ptrFn resolves a logical heap address to a pointer. It is mocked by
	// tests for the same reason as base.
	ptrFn = func(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }

	// panicFn is mocked by tests so that fatal heap conditions can be
	// observed via recover() instead of halting the CPU.
	panicFn = kfmt.Panic

	// interruptGuardFn/endInterruptGuardFn are mocked by tests so the
	// cli/sti critical-section discipline around the block list does not
	// execute real privileged instructions outside ring 0.
	interruptGuardFn    = kernel.InterruptGuard
	endInterruptGuardFn = kernel.EndInterruptGuard

	errZeroSize    = &kernel.Error{Module: "heap", Message: "allocation size must be non-zero"}
	errCorruption  = &kernel.Error{Module: "heap", Message: "heap corruption detected (bad magic)"}
	errOutOfMemory = &kernel.Error{Module: "heap", Message: "heap out of memory"}
	errDoubleFree  = &kernel.Error{Module: "heap", Message: "double free detected"}
)

// Stats is a snapshot of the heap's block accounting.
type Stats struct {
	Total uintptr
	Used  uintptr
	Free  uintptr
}

// Init reserves regionSize bytes of physical memory starting at the virtual
// base address, mapping one frame per page with Present|RW permissions, and
// installs a single free block spanning the whole region.
func Init() *kernel.Error {
	base = baseAddr

	for vaddr := baseAddr; vaddr < baseAddr+regionSize; vaddr += mm.PageSize {
		frame, err := mm.AllocFrame()
		if err != nil {
			return err
		}
		if err := vmm.Map(mm.PageFromAddress(vaddr), frame, vmm.FlagPresent|vmm.FlagRW); err != nil {
			return err
		}
	}

	h := headerAt(base)
	h.magic = magic
	h.size = uint32(regionSize - headerSize)
	h.isFree = 1
	h.next = 0

	return nil
}

func headerAt(addr uintptr) *header {
	return (*header)(ptrFn(addr))
}

// Alloc returns a pointer to the payload of a block that can hold at least
// size bytes, splitting the first sufficiently large free block if the
// remainder can itself hold a header and minSplitPayload bytes. Allocation
// failure and heap corruption are both unrecoverable and panic, matching
// this core's error handling design.
func Alloc(size uintptr) uintptr {
	if size == 0 {
		panicFn(errZeroSize)
	}
	size = (size + (alignment - 1)) &^ (alignment - 1)

	defer endInterruptGuardFn(interruptGuardFn())
	lock.Acquire()
	defer lock.Release()

	addr := base
	for addr != 0 {
		cur := headerAt(addr)
		if cur.magic != magic {
			panicFn(errCorruption)
		}

		if cur.isFree == 1 && uintptr(cur.size) >= size {
			if uintptr(cur.size) >= size+headerSize+minSplitPayload {
				newAddr := addr + headerSize + size
				nb := headerAt(newAddr)
				nb.magic = magic
				nb.size = cur.size - uint32(size) - uint32(headerSize)
				nb.isFree = 1
				nb.next = cur.next

				cur.size = uint32(size)
				cur.next = newAddr
			}

			cur.isFree = 0
			return addr + headerSize
		}

		addr = cur.next
	}

	panicFn(errOutOfMemory)
	return 0
}

// Free releases a block previously returned by Alloc, coalescing it with
// its forward and backward neighbors if they are themselves free. Freeing
// the zero pointer is a no-op; a bad magic or an already-free block are
// both unrecoverable and panic.
func Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	defer endInterruptGuardFn(interruptGuardFn())
	lock.Acquire()
	defer lock.Release()

	addr := ptr - headerSize
	h := headerAt(addr)

	if h.magic != magic {
		panicFn(errCorruption)
	}
	if h.isFree == 1 {
		panicFn(errDoubleFree)
	}

	h.isFree = 1

	if h.next != 0 {
		next := headerAt(h.next)
		if next.isFree == 1 {
			h.size += uint32(headerSize) + next.size
			h.next = next.next
		}
	}

	predAddr := uintptr(0)
	for cursor := base; cursor != 0; {
		c := headerAt(cursor)
		if c.next == addr {
			predAddr = cursor
			break
		}
		cursor = c.next
	}

	if predAddr != 0 {
		pred := headerAt(predAddr)
		if pred.isFree == 1 {
			pred.size += uint32(headerSize) + h.size
			pred.next = h.next
		}
	}
}

// GetStats walks the block list and returns a snapshot of total/used/free
// bytes. Total always equals the initial region size minus the very first
// header, regardless of how many headers currently subdivide it.
func GetStats() Stats {
	lock.Acquire()
	defer lock.Release()

	var st Stats
	for addr := base; addr != 0; {
		h := headerAt(addr)
		st.Total += uintptr(h.size) + headerSize
		if h.isFree == 1 {
			st.Free += uintptr(h.size)
		} else {
			st.Used += uintptr(h.size)
		}
		addr = h.next
	}
	st.Total -= headerSize

	return st
}
