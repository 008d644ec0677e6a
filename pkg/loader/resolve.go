package loader

import (
	"fmt"

	"github.com/gert-vm/gert/vm"
)

// ---------------------------------------------------------------------------
// Atom resolution pass
// ---------------------------------------------------------------------------

// ResolveAtoms rewrites load-time atom references into resolved runtime
// atoms using the module's atom snapshot: the ordered sequence of tagged
// atoms built while the loader read the module's atom section, indexed
// by load-time atom index.
//
// The changed flag plays the no-change sentinel role: when false, the
// caller keeps the original term and avoids rebuilding. Containers
// (ExtList, Tuple, Cons) resolve children recursively and are rebuilt
// only when some child changed. Every other variant reports no change;
// labels, literal indices and raw words are resolved by the assembler,
// not this pass.
//
// The pass is idempotent (resolving a resolved term reports no change)
// and only reads the snapshot.
func ResolveAtoms(ft FTerm, snapshot []vm.Term) (FTerm, bool, error) {
	switch t := ft.(type) {
	case LoadAtom:
		if uint(t) >= uint(len(snapshot)) {
			return nil, false, vmFault(vm.FaultAtomRange,
				"loadtime atom %d outside snapshot of %d", uint(t), len(snapshot))
		}
		return Atom(snapshot[t].AtomIndex()), true, nil

	case ExtList:
		out, changed, err := resolveChildren([]FTerm(t), snapshot)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return nil, false, nil
		}
		return ExtList(out), true, nil

	case Tuple:
		out, changed, err := resolveChildren([]FTerm(t), snapshot)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return nil, false, nil
		}
		return Tuple(out), true, nil

	case Cons:
		out, changed, err := resolveChildren(t[:], snapshot)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return nil, false, nil
		}
		return Cons{out[0], out[1]}, true, nil

	default:
		return nil, false, nil
	}
}

// resolveChildren resolves each child, reporting whether any changed.
// The returned slice is fresh only when changed; untouched children are
// carried over as-is (friendly terms are exclusively owned trees, so
// this is a move, not sharing).
func resolveChildren(children []FTerm, snapshot []vm.Term) ([]FTerm, bool, error) {
	out := make([]FTerm, len(children))
	changed := false
	for i, child := range children {
		r, c, err := ResolveAtoms(child, snapshot)
		if err != nil {
			return nil, false, err
		}
		if c {
			out[i] = r
			changed = true
		} else {
			out[i] = child
		}
	}
	if !changed {
		return nil, false, nil
	}
	return out, true, nil
}

func vmFault(kind vm.FaultKind, format string, args ...interface{}) error {
	return &vm.Fault{Kind: kind, Context: fmt.Sprintf(format, args...)}
}
