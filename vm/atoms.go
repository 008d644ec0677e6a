package vm

import (
	"sync"
)

// ---------------------------------------------------------------------------
// AtomTable: interned symbolic names
// ---------------------------------------------------------------------------

// AtomTable interns atom text to stable small integer indices and back.
// Atoms are append-only: once an index is assigned it is never removed or
// renumbered for the life of the table.
//
// The forward map and the reverse slice are independently lock-guarded so
// readers of one never contend with readers of the other. An insert takes
// the forward lock first, re-checks existence, then takes the reverse
// lock; no index is ever published in the forward map before its text is
// in place in the reverse slice.
type AtomTable struct {
	fwdMu sync.RWMutex
	fwd   map[string]uint // text -> index

	revMu sync.RWMutex
	rev   []string // index -> text
}

// NewAtomTable creates a new empty atom table.
func NewAtomTable() *AtomTable {
	return &AtomTable{
		fwd: make(map[string]uint),
		rev: make([]string, 0, 256),
	}
}

// Intern returns a tagged atom term for text, assigning the next unused
// index on first sight. Never fails; equal text always yields the same
// index, concurrent callers included.
func (t *AtomTable) Intern(text string) Term {
	return MakeAtom(t.InternIndex(text))
}

// InternIndex is Intern without the term packing.
func (t *AtomTable) InternIndex(text string) uint {
	// Fast path: read-only lookup
	t.fwdMu.RLock()
	if idx, ok := t.fwd[text]; ok {
		t.fwdMu.RUnlock()
		return idx
	}
	t.fwdMu.RUnlock()

	t.fwdMu.Lock()
	defer t.fwdMu.Unlock()

	// Double-check after acquiring the write lock
	if idx, ok := t.fwd[text]; ok {
		return idx
	}

	t.revMu.Lock()
	idx := uint(len(t.rev))
	t.rev = append(t.rev, text)
	t.revMu.Unlock()

	t.fwd[text] = idx
	return idx
}

// ResolveIndex returns the interned text for a previously assigned index.
// Presenting an index this table never assigned is a contract violation
// and returns a FaultAtomRange error, never a silent default.
func (t *AtomTable) ResolveIndex(index uint) (string, error) {
	t.revMu.RLock()
	defer t.revMu.RUnlock()

	if index >= uint(len(t.rev)) {
		return "", newFault(FaultAtomRange, "atom index %d out of range (table has %d)", index, len(t.rev))
	}
	return t.rev[index], nil
}

// ResolveTerm returns the text behind a tagged atom term.
func (t *AtomTable) ResolveTerm(a Term) (string, error) {
	return t.ResolveIndex(a.AtomIndex())
}

// Lookup returns the index for text without interning, and whether it exists.
func (t *AtomTable) Lookup(text string) (uint, bool) {
	t.fwdMu.RLock()
	defer t.fwdMu.RUnlock()
	idx, ok := t.fwd[text]
	return idx, ok
}

// Len returns the number of interned atoms.
func (t *AtomTable) Len() int {
	t.revMu.RLock()
	defer t.revMu.RUnlock()
	return len(t.rev)
}

// ---------------------------------------------------------------------------
// Process-wide table
// ---------------------------------------------------------------------------

var (
	defaultAtoms     *AtomTable
	defaultAtomsOnce sync.Once
)

// Atoms returns the process-wide atom table, creating it on first use.
// Components that want isolation (tests in particular) should take an
// *AtomTable dependency instead of reaching for this.
func Atoms() *AtomTable {
	defaultAtomsOnce.Do(func() {
		defaultAtoms = NewAtomTable()
	})
	return defaultAtoms
}
