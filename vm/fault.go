package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Fault: typed process-local failures
// ---------------------------------------------------------------------------

// FaultKind classifies a process-local fault.
type FaultKind int

const (
	// FaultBadTag indicates a term accessor was used on the wrong category,
	// or an operand had a category the instruction cannot accept.
	FaultBadTag FaultKind = iota

	// FaultBadArity indicates the decoded operand stream disagrees with the
	// declared arity of the instruction. A loader or codegen defect.
	FaultBadArity

	// FaultAtomRange indicates an atom index that was never assigned by the
	// atom table it was presented to.
	FaultAtomRange

	// FaultRange indicates a register or stack slot index outside the
	// process's register file or current frame.
	FaultRange

	// FaultNotImplemented marks a known-gap opcode. Deterministic halt,
	// distinct from data-integrity faults.
	FaultNotImplemented

	// FaultAllocation indicates the process heap could not satisfy an
	// allocation. The process crashes; the runtime keeps going.
	FaultAllocation

	// FaultNotRuntime indicates a load-time-only term was observed after
	// loading completed. Resolution was skipped or incomplete.
	FaultNotRuntime

	// FaultKilled indicates the process was killed by the scheduler at an
	// instruction boundary.
	FaultKilled
)

// String returns a short name for the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultBadTag:
		return "bad_tag"
	case FaultBadArity:
		return "bad_arity"
	case FaultAtomRange:
		return "atom_range"
	case FaultRange:
		return "range"
	case FaultNotImplemented:
		return "not_implemented"
	case FaultAllocation:
		return "allocation"
	case FaultNotRuntime:
		return "not_runtime"
	case FaultKilled:
		return "killed"
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// Fault describes why a process crashed. Faults are local to the process
// that raised them; they never touch shared tables or other heaps.
type Fault struct {
	Kind    FaultKind
	Context string // diagnostic detail: expected vs actual, operand, offset
}

func (f *Fault) Error() string {
	if f.Context == "" {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Context
}

// newFault builds a fault with formatted diagnostic context.
func newFault(kind FaultKind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Context: fmt.Sprintf(format, args...)}
}

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsFaultKind reports whether err carries a fault of the given kind.
func IsFaultKind(err error, kind FaultKind) bool {
	if f, ok := AsFault(err); ok {
		return f.Kind == kind
	}
	return false
}
