package vm

// ---------------------------------------------------------------------------
// Heap: per-process fixed-capacity arena
// ---------------------------------------------------------------------------

// Heap is a bump-allocated arena of term words owned by one process.
// Capacity is fixed at creation so allocated words never move; boxed
// terms may point into the arena for its whole lifetime (until a
// collection pass relocates them, which is outside this layer).
type Heap struct {
	words []Term
	top   int
}

// NewHeap creates an arena with room for capacity words.
func NewHeap(capacity int) *Heap {
	return &Heap{words: make([]Term, capacity)}
}

// Alloc reserves n consecutive words and returns them. When the arena
// cannot satisfy the request the process-level FaultAllocation is
// returned; the arena itself is left untouched.
func (h *Heap) Alloc(n int) ([]Term, error) {
	if h.top+n > len(h.words) {
		return nil, newFault(FaultAllocation, "heap exhausted: need %d words, %d free", n, len(h.words)-h.top)
	}
	chunk := h.words[h.top : h.top+n : h.top+n]
	h.top += n
	return chunk, nil
}

// Used returns the number of allocated words.
func (h *Heap) Used() int { return h.top }

// Capacity returns the total arena size in words.
func (h *Heap) Capacity() int { return len(h.words) }

// WalkBoxed calls fn for every boxed term among the live arena words.
// Together with the register file and stack walks on Process this is the
// collector's root/reachability enumeration; it relies only on the term
// category predicates.
func (h *Heap) WalkBoxed(fn func(Term)) {
	for _, w := range h.words[:h.top] {
		if w.IsBoxed() {
			fn(w)
		}
	}
}
