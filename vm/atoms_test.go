package vm

import (
	"fmt"
	"sync"
	"testing"
)

func TestAtomInternBijection(t *testing.T) {
	tbl := NewAtomTable()

	names := []string{"ok", "error", "undefined", "true", "false", "ok"}
	seen := make(map[string]uint)

	for _, n := range names {
		idx := tbl.InternIndex(n)
		if prev, ok := seen[n]; ok {
			if prev != idx {
				t.Errorf("Intern(%q) = %d, previously %d", n, idx, prev)
			}
			continue
		}
		seen[n] = idx

		got, err := tbl.ResolveIndex(idx)
		if err != nil {
			t.Fatalf("ResolveIndex(%d): %v", idx, err)
		}
		if got != n {
			t.Errorf("ResolveIndex(Intern(%q)) = %q", n, got)
		}
	}

	if tbl.Len() != 5 {
		t.Errorf("Len() = %d, want 5", tbl.Len())
	}
}

// TestAtomIndicesMonotonic verifies the n-th distinct text gets index n-1.
func TestAtomIndicesMonotonic(t *testing.T) {
	tbl := NewAtomTable()

	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("atom_%d", i)
		if idx := tbl.InternIndex(name); idx != uint(i) {
			t.Fatalf("Intern(%q) = %d, want %d", name, idx, i)
		}
		// Re-interning must not burn an index
		if idx := tbl.InternIndex(name); idx != uint(i) {
			t.Fatalf("re-Intern(%q) = %d, want %d", name, idx, i)
		}
	}
}

func TestAtomInternTerm(t *testing.T) {
	tbl := NewAtomTable()

	a := tbl.Intern("hello")
	if !a.IsAtom() {
		t.Fatal("Intern should produce an atom term")
	}
	text, err := tbl.ResolveTerm(a)
	if err != nil {
		t.Fatalf("ResolveTerm: %v", err)
	}
	if text != "hello" {
		t.Errorf("ResolveTerm = %q, want %q", text, "hello")
	}
}

func TestAtomResolveOutOfRange(t *testing.T) {
	tbl := NewAtomTable()
	tbl.Intern("only")

	_, err := tbl.ResolveIndex(1)
	if err == nil {
		t.Fatal("ResolveIndex(1) on a 1-atom table should fail")
	}
	if !IsFaultKind(err, FaultAtomRange) {
		t.Errorf("error = %v, want atom_range fault", err)
	}
}

func TestAtomLookup(t *testing.T) {
	tbl := NewAtomTable()
	tbl.Intern("present")

	if idx, ok := tbl.Lookup("present"); !ok || idx != 0 {
		t.Errorf("Lookup(present) = %d, %v", idx, ok)
	}
	if _, ok := tbl.Lookup("absent"); ok {
		t.Error("Lookup(absent) should report missing without interning")
	}
}

// TestAtomConcurrentIntern hammers the table from many goroutines over a
// fixed set of texts: exactly K indices total, each text consistently
// mapped, no duplicates.
func TestAtomConcurrentIntern(t *testing.T) {
	const goroutines = 16
	const distinct = 100

	tbl := NewAtomTable()

	var wg sync.WaitGroup
	results := make([][]uint, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			results[g] = make([]uint, distinct)
			for i := 0; i < distinct; i++ {
				results[g][i] = tbl.InternIndex(fmt.Sprintf("atom_%d", i))
			}
		}(g)
	}
	wg.Wait()

	if tbl.Len() != distinct {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), distinct)
	}

	// Every goroutine must have observed the same index per text
	for i := 0; i < distinct; i++ {
		want := results[0][i]
		for g := 1; g < goroutines; g++ {
			if results[g][i] != want {
				t.Fatalf("atom_%d: goroutine %d got %d, goroutine 0 got %d",
					i, g, results[g][i], want)
			}
		}
	}

	// Indices must be dense: 0..distinct-1 each exactly once
	used := make(map[uint]bool)
	for i := 0; i < distinct; i++ {
		idx := results[0][i]
		if idx >= distinct {
			t.Errorf("index %d out of dense range", idx)
		}
		if used[idx] {
			t.Errorf("index %d assigned twice", idx)
		}
		used[idx] = true
	}
}

func TestDefaultAtomsSingleton(t *testing.T) {
	a := Atoms()
	b := Atoms()
	if a != b {
		t.Error("Atoms() must return the same table")
	}
}
