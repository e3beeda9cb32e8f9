// Package sched implements round-robin preemptive scheduling over the
// processes tracked by package proc. The scheduler owns a circular ready
// queue and performs context switches by overwriting the interrupt frame
// the timer handler was called with, rather than through a dedicated
// assembly routine: since a switch only ever happens from inside the IRQ0
// handler, replacing the saved frame and reloading CR3 is equivalent to,
// and simpler than, a hand-rolled save/restore trampoline.
package sched

import (
	"nucleus/kernel/cpu"
	"nucleus/kernel/gate"
	"nucleus/kernel/proc"
)

// defaultTickBudget is the number of timer ticks a process runs before being
// preempted again, both on its first switch-in and every one after.
const defaultTickBudget = 10

var (
	switchPDTFn = cpu.SwitchPDT

	readyHead *proc.PCB
	readyTail *proc.PCB

	ticks    uint64
	switches uint64
)

// Stats is a snapshot of the scheduler's tick/switch accounting, exposed so
// round-robin fairness (every ready process receives a bounded number of
// ticks before any other runs twice) can be asserted from outside the
// package.
type Stats struct {
	Ticks    uint64
	Switches uint64
}

// GetStats returns the current tick/switch counters.
func GetStats() Stats {
	return Stats{Ticks: ticks, Switches: switches}
}

// Init resets the ready queue and the tick/switch counters. It does not
// touch the process table.
func Init() {
	readyHead = nil
	readyTail = nil
	ticks = 0
	switches = 0
}

// Add inserts p at the tail of the ready queue, marking it Ready. A nil p
// is a no-op.
func Add(p *proc.PCB) {
	if p == nil {
		return
	}

	p.State = proc.Ready
	p.Next = nil

	if readyHead == nil {
		readyHead = p
		readyTail = p
		p.Next = p
		return
	}

	readyTail.Next = p
	p.Next = readyHead
	readyTail = p
}

// Remove takes p out of the ready queue if present. A process that is not
// queued (e.g. Running or Terminated) is left untouched.
func Remove(p *proc.PCB) {
	if p == nil || readyHead == nil {
		return
	}

	if readyHead == readyTail && readyHead == p {
		readyHead = nil
		readyTail = nil
		return
	}

	prev := readyTail
	cur := readyHead
	for {
		if cur == p {
			prev.Next = cur.Next
			if cur == readyHead {
				readyHead = cur.Next
			}
			if cur == readyTail {
				readyTail = prev
			}
			cur.Next = nil
			return
		}
		prev = cur
		cur = cur.Next
		if cur == readyHead {
			return
		}
	}
}

// next unlinks and returns the head of the ready queue, implementing
// round-robin order: a process is only ever a queue member while Ready, and
// Tick re-queues it (via Add) once it stops running. Returns nil if the
// queue is empty.
func next() *proc.PCB {
	if readyHead == nil {
		return nil
	}

	n := readyHead
	if readyHead == readyTail {
		readyHead = nil
		readyTail = nil
	} else {
		readyHead = n.Next
		readyTail.Next = readyHead
	}
	n.Next = nil
	return n
}

// Tick is invoked by the timer handler on every PIT interrupt with the
// interrupted process's saved register frame. It decrements the running
// process's tick budget and, once that budget is exhausted (or the
// running process is no longer Running), picks the next ready process,
// re-queues the outgoing one only along that switch path, and performs the
// switch by copying register state into and out of regs and reloading CR3.
func Tick(regs *gate.Registers) {
	ticks++
	current := proc.Current()

	if current != nil && current.TickBudget > 0 {
		current.TickBudget--
	}

	if current != nil && current.TickBudget > 0 && current.State == proc.Running {
		return
	}

	n := next()
	if n == nil {
		return
	}

	if current != nil && current.State == proc.Running {
		current.Context = *regs
		current.TickBudget = defaultTickBudget
		Add(current)
	}

	n.State = proc.Running
	n.TickBudget = defaultTickBudget
	proc.SetCurrent(n)

	*regs = n.Context
	switchPDTFn(n.CR3)
	switches++
}

// Yield forces the currently running process to give up the remainder of
// its tick budget on the next Tick call.
func Yield() {
	if current := proc.Current(); current != nil {
		current.TickBudget = 0
	}
}
