package vm

// ---------------------------------------------------------------------------
// Context: operand decoding cursor for one code stream
// ---------------------------------------------------------------------------

// Context is the per-run decoding state of the dispatch loop: the packed
// code stream, the instruction pointer, and the label table resolved at
// load time. Operand fetch and store go through the context so every
// handler sees registers, stack slots and immediates uniformly.
type Context struct {
	code   []Term
	labels map[uint]int // label number -> code offset

	ip int
	op Opcode // opcode currently being executed, for diagnostics
}

// NewContext creates a decoding context over a packed code stream.
func NewContext(code []Term, labels map[uint]int) *Context {
	return &Context{code: code, labels: labels}
}

// IP returns the current code offset.
func (c *Context) IP() int { return c.ip }

// Done reports whether the cursor has run off the end of the code.
func (c *Context) Done() bool { return c.ip >= len(c.code) }

// FetchTerm advances the cursor and returns the next operand word
// verbatim: immediates, register references and stack slot references
// come back untouched. Running past the end of the stream means the
// decoded instruction is shorter than its declared arity; that is a
// loader defect and halts the process.
func (c *Context) FetchTerm() Term {
	if c.ip >= len(c.code) {
		panic(newFault(FaultBadArity, "%s: operand stream truncated at offset %d", c.op, c.ip))
	}
	t := c.code[c.ip]
	c.ip++
	return t
}

// assertArity validates the declared arity of op against the table the
// loader packed the stream from. A mismatch is a codegen defect, caught
// deterministically before any operand is consumed.
func (c *Context) assertArity(op Opcode, want int) {
	if got := OpArity(op); got != want {
		panic(newFault(FaultBadArity, "%s: handler expects %d operands, table declares %d", op, want, got))
	}
}

// JumpLabel transfers control to a label recorded at load time.
func (c *Context) JumpLabel(label uint) error {
	offset, ok := c.labels[label]
	if !ok {
		return newFault(FaultRange, "%s: jump to unknown label %d", c.op, label)
	}
	c.ip = offset
	return nil
}

// Load produces the value a source operand stands for: register and
// stack references are dereferenced through the process, everything
// else is an immediate returned as-is. Float registers have their own
// instruction family and are not loadable here.
func (c *Context) Load(t Term, p *Process) (Term, error) {
	switch {
	case t.IsXReg():
		return p.XReg(t.XRegIndex())
	case t.IsYReg():
		return p.YSlot(t.YRegIndex())
	case t.IsFPReg():
		return 0, newFault(FaultBadTag, "%s: fp register used as a term source", c.op)
	default:
		return t, nil
	}
}

// Store loads the src operand and writes the value into the slot dst
// addresses. Source and destination kinds are orthogonal: any loadable
// source may land in any writable destination. A destination that is not
// a register or a stack slot is a contract violation the loader should
// have rejected.
func (c *Context) Store(src, dst Term, p *Process) error {
	v, err := c.Load(src, p)
	if err != nil {
		return err
	}
	switch {
	case dst.IsXReg():
		return p.SetXReg(dst.XRegIndex(), v)
	case dst.IsYReg():
		return p.SetYSlot(dst.YRegIndex(), v)
	default:
		return newFault(FaultBadTag, "%s: %s is not a writable destination", c.op, dst.kindName())
	}
}
