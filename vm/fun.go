package vm

import (
	"unsafe"
)

// ---------------------------------------------------------------------------
// FunEntry and closures
// ---------------------------------------------------------------------------

// FunEntry describes one fun (lambda) of a loaded module. Entries live in
// the module's fun table built at load time; make_fun2 operands are boxed
// references to them.
type FunEntry struct {
	Module  Term // atom naming the module
	Name    Term // atom naming the fun
	Arity   int  // arguments the fun expects when called
	NumFree int  // free variables captured at creation
	Label   uint // entry point label
}

// BoxedTerm returns the boxed term referencing this entry, as packed into
// a module's code stream by the loader.
func (fe *FunEntry) BoxedTerm() Term {
	return MakeBoxed(unsafe.Pointer(fe))
}

// FunEntryFromTerm reinterprets a boxed term as a fun entry pointer. The
// term layer carries no secondary tag for boxed payloads; the caller must
// know from context (here: the make_fun2 operand position) what the box
// holds.
func FunEntryFromTerm(t Term) *FunEntry {
	return (*FunEntry)(t.BoxPtr())
}

// Closure heap layout: a header word, the boxed fun entry, then the
// captured free variables. The header's word count covers everything
// after it, so the collector can walk the structure blind.
const closureOverhead = 2 // header + fun entry words

// makeClosure allocates a closure for fe on the process heap, copying
// NumFree captured variables from the leading X registers (the calling
// convention make_fun2 relies on). Returns the boxed closure term.
// A heap that cannot hold the closure faults the process, not the
// runtime.
func makeClosure(fe *FunEntry, p *Process) (Term, error) {
	if fe.NumFree > len(p.X) {
		return 0, newFault(FaultRange, "make_fun2: %d free variables exceed register file", fe.NumFree)
	}

	words, err := p.Heap.Alloc(closureOverhead + fe.NumFree)
	if err != nil {
		return 0, err
	}

	words[0] = MakeHeader(uint(1 + fe.NumFree))
	words[1] = fe.BoxedTerm()
	copy(words[2:], p.X[:fe.NumFree])

	return MakeBoxed(unsafe.Pointer(&words[0])), nil
}

// ClosureEntry returns the fun entry a boxed closure was created from.
func ClosureEntry(closure Term) *FunEntry {
	words := closureWords(closure)
	return FunEntryFromTerm(words[1])
}

// ClosureFrees returns the captured free variables of a boxed closure.
func ClosureFrees(closure Term) []Term {
	words := closureWords(closure)
	return words[2:]
}

func closureWords(closure Term) []Term {
	head := (*Term)(closure.BoxPtr())
	n := head.HeaderArity()
	return unsafe.Slice(head, int(n)+1)
}
