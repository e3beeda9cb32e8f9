package pmm

import (
	"nucleus/kernel"
	"nucleus/kernel/mm"
	"nucleus/kernel/sync"
	"unsafe"
)

// reservedLowMemory is the size, in bytes, of the low-memory region
// (kernel image plus early boot structures) that Init always marks as
// allocated regardless of where the bitmap itself ends up.
const reservedLowMemory = 0x200000

var (
	lock sync.Spinlock

	// interruptGuardFn/endInterruptGuardFn are mocked by tests so the
	// cli/sti critical-section discipline around the bitmap does not
	// execute real privileged instructions outside ring 0.
	interruptGuardFn    = kernel.InterruptGuard
	endInterruptGuardFn = kernel.EndInterruptGuard

	bitmap     []byte
	frameCount uintptr
	freeFrames uintptr

	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
	errNotAligned  = &kernel.Error{Module: "pmm", Message: "address is not frame-aligned"}
	errDoubleFree  = &kernel.Error{Module: "pmm", Message: "frame is already free"}
	errOutOfRange  = &kernel.Error{Module: "pmm", Message: "address does not map to a tracked frame"}
)

// Stats is a snapshot of the physical memory manager's frame counters.
type Stats struct {
	TotalFrames uintptr
	UsedFrames  uintptr
	FreeFrames  uintptr
}

// Init installs a frame bitmap immediately after heapEnd, covering a
// physical address space of totalBytes, and marks the frames occupied by
// the kernel image, the heap and the bitmap itself as allocated. It then
// registers this package's AllocFrame as the system-wide frame allocator.
func Init(heapEnd, totalBytes uintptr) *kernel.Error {
	frameCount = totalBytes >> mm.PageShift
	bitmapBytes := (frameCount + 7) / 8

	bitmap = unsafe.Slice((*byte)(unsafe.Pointer(heapEnd)), bitmapBytes)
	for i := range bitmap {
		bitmap[i] = 0
	}

	reservedBytes := reservedLowMemory + bitmapBytes
	reservedFrames := (reservedBytes + mm.PageSize - 1) >> mm.PageShift
	if reservedFrames > frameCount {
		reservedFrames = frameCount
	}

	for frame := uintptr(0); frame < reservedFrames; frame++ {
		setBit(frame)
	}
	freeFrames = frameCount - reservedFrames

	mm.SetFrameAllocator(AllocFrame)

	return nil
}

// AllocFrame reserves and returns the lowest-numbered free physical frame.
// It returns errOutOfMemory if no free frame remains.
func AllocFrame() (mm.Frame, *kernel.Error) {
	defer endInterruptGuardFn(interruptGuardFn())
	lock.Acquire()
	defer lock.Release()

	for frame := uintptr(0); frame < frameCount; frame++ {
		if !testBit(frame) {
			setBit(frame)
			freeFrames--
			return mm.Frame(frame), nil
		}
	}

	return mm.InvalidFrame, errOutOfMemory
}

// FreeFrame releases a physical frame previously returned by AllocFrame.
// addr must be frame-aligned and must currently be allocated; either
// violation is a programming error and is reported rather than silently
// ignored.
func FreeFrame(addr uintptr) *kernel.Error {
	if addr&(mm.PageSize-1) != 0 {
		return errNotAligned
	}

	frame := addr >> mm.PageShift

	defer endInterruptGuardFn(interruptGuardFn())
	lock.Acquire()
	defer lock.Release()

	if frame >= frameCount {
		return errOutOfRange
	}
	if !testBit(frame) {
		return errDoubleFree
	}

	clearBit(frame)
	freeFrames++
	return nil
}

// GetStats returns a snapshot of the current frame counters.
func GetStats() Stats {
	lock.Acquire()
	defer lock.Release()

	return Stats{
		TotalFrames: frameCount,
		UsedFrames:  frameCount - freeFrames,
		FreeFrames:  freeFrames,
	}
}

func testBit(frame uintptr) bool {
	return bitmap[frame>>3]&(1<<(frame&7)) != 0
}

func setBit(frame uintptr) {
	bitmap[frame>>3] |= 1 << (frame & 7)
}

func clearBit(frame uintptr) {
	bitmap[frame>>3] &^= 1 << (frame & 7)
}
