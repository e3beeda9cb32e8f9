package main

import "nucleus/kernel/kmain"

// main is the only Go symbol visible (exported) to the rt0 initialization
// code. It is a trampoline for the real kernel entrypoint, kmain.Kmain,
// and exists so the Go compiler (which has no visibility into the rt0 asm
// that calls it) does not eliminate the kernel code as unreachable.
//
// main is invoked by rt0 after it has set up the GDT and a minimal g0
// sufficient to run Go code on the small stack carved out at boot.
//
// main is not expected to return. If it does, rt0 halts the CPU.
func main() {
	kmain.Kmain()
}
