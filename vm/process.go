package vm

import (
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Process: an independent unit of execution
// ---------------------------------------------------------------------------

// ProcessStatus tracks where a process is in its lifecycle.
type ProcessStatus int

const (
	StatusRunnable ProcessStatus = iota
	StatusRunning
	StatusFinished
	StatusCrashed
)

// String returns a human-readable status name.
func (s ProcessStatus) String() string {
	switch s {
	case StatusRunnable:
		return "runnable"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusCrashed:
		return "crashed"
	}
	return "unknown"
}

// ProcessLimits sizes a process's register file, stack and heap.
type ProcessLimits struct {
	XRegs      int // X register file size
	FPRegs     int // float register file size
	StackSlots int // Y stack slots
	HeapWords  int // heap arena capacity
}

// DefaultLimits returns the sizes used when the caller does not care.
func DefaultLimits() ProcessLimits {
	return ProcessLimits{
		XRegs:      64,
		FPRegs:     16,
		StackSlots: 256,
		HeapWords:  4096,
	}
}

// Process holds the private execution state of one VM process: its
// register file, stack, float registers and heap arena. Nothing here is
// shared; the atom table is the only cross-process state in the core.
type Process struct {
	PID uint64

	X     []Term    // X registers
	FP    []float64 // float registers
	Stack []Term    // Y slots, frame-relative from Base
	Base  int       // current frame base into Stack

	Heap *Heap

	Status ProcessStatus
	Fault  *Fault // set when Status == StatusCrashed

	killed atomic.Bool
}

var nextPID atomic.Uint64

// NewProcess creates a runnable process with the given limits.
func NewProcess(limits ProcessLimits) *Process {
	return &Process{
		PID:   nextPID.Add(1),
		X:     make([]Term, limits.XRegs),
		FP:    make([]float64, limits.FPRegs),
		Stack: make([]Term, limits.StackSlots),
		Heap:  NewHeap(limits.HeapWords),
	}
}

// XReg reads X register i.
func (p *Process) XReg(i uint) (Term, error) {
	if int(i) >= len(p.X) {
		return 0, newFault(FaultRange, "x%d out of range (%d registers)", i, len(p.X))
	}
	return p.X[i], nil
}

// SetXReg writes X register i.
func (p *Process) SetXReg(i uint, v Term) error {
	if int(i) >= len(p.X) {
		return newFault(FaultRange, "x%d out of range (%d registers)", i, len(p.X))
	}
	p.X[i] = v
	return nil
}

// YSlot reads stack slot i of the current frame.
func (p *Process) YSlot(i uint) (Term, error) {
	slot := p.Base + int(i)
	if slot >= len(p.Stack) {
		return 0, newFault(FaultRange, "y%d out of range (frame base %d, %d slots)", i, p.Base, len(p.Stack))
	}
	return p.Stack[slot], nil
}

// SetYSlot writes stack slot i of the current frame.
func (p *Process) SetYSlot(i uint, v Term) error {
	slot := p.Base + int(i)
	if slot >= len(p.Stack) {
		return newFault(FaultRange, "y%d out of range (frame base %d, %d slots)", i, p.Base, len(p.Stack))
	}
	p.Stack[slot] = v
	return nil
}

// Crash marks the process crashed with the given fault and logs the
// reason. Faults are process-local: the runtime keeps running everything
// else.
func (p *Process) Crash(f *Fault) {
	p.Status = StatusCrashed
	p.Fault = f
	log.Errorf("process %d crashed: %s", p.PID, f.Error())
}

// Kill requests termination. The flag is observed only at instruction
// boundaries, never inside an instruction's fetch/store sequence.
func (p *Process) Kill() {
	p.killed.Store(true)
}

// Killed reports whether a kill was requested.
func (p *Process) Killed() bool {
	return p.killed.Load()
}

// WalkBoxed calls fn for every boxed term reachable from the process's
// register file, stack and heap. This is the collector's root set.
func (p *Process) WalkBoxed(fn func(Term)) {
	for _, t := range p.X {
		if t.IsBoxed() {
			fn(t)
		}
	}
	for _, t := range p.Stack {
		if t.IsBoxed() {
			fn(t)
		}
	}
	p.Heap.WalkBoxed(fn)
}
