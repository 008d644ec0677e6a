package vm

// ---------------------------------------------------------------------------
// Dispatch: opcode handlers and the single-instruction step
// ---------------------------------------------------------------------------

// DispatchResult is the explicit outcome of one instruction. Every
// handler returns exactly one; the loop is never left in an ambiguous
// state.
type DispatchResult int

const (
	// DispatchNormal continues with the next instruction.
	DispatchNormal DispatchResult = iota

	// DispatchControl signals a completed control transfer: the context's
	// instruction pointer has already been moved.
	DispatchControl

	// DispatchFinished ends the process normally.
	DispatchFinished
)

// String returns a short name for the dispatch outcome.
func (r DispatchResult) String() string {
	switch r {
	case DispatchNormal:
		return "normal"
	case DispatchControl:
		return "control"
	case DispatchFinished:
		return "finished"
	}
	return "unknown"
}

// opHandler executes one decoded instruction against the running
// process. Handlers run to completion or to an explicit fault; they
// never suspend mid-instruction.
type opHandler func(c *Context, p *Process) (DispatchResult, error)

// handlers maps opcodes to their implementations. A declared opcode with
// a nil handler is a known gap and dispatches to FaultNotImplemented.
var handlers = map[Opcode]opHandler{
	OpLabel:      opcodeLabel,
	OpIntCodeEnd: opcodeIntCodeEnd,
	OpReturn:     opcodeReturn,
	OpJump:       opcodeJump,
	OpMove:       opcodeMove,
	OpMakeFun2:   opcodeMakeFun2,
}

// Step decodes and executes a single instruction. Tagging and arity
// panics raised anywhere in the fetch/execute path are recovered here
// and surfaced as process-local faults; nothing escapes to the caller's
// goroutine and shared state is never touched.
func Step(c *Context, p *Process) (result DispatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*Fault); ok {
				result, err = DispatchNormal, f
				return
			}
			panic(r)
		}
	}()

	if c.Done() {
		return DispatchFinished, nil
	}

	opWord := c.FetchTerm()
	op := Opcode(opWord.SmallValue())
	c.op = op

	if OpArity(op) < 0 {
		return DispatchNormal, newFault(FaultBadTag, "unknown opcode %d at offset %d", op, c.ip-1)
	}
	h := handlers[op]
	if h == nil {
		return DispatchNormal, newFault(FaultNotImplemented, "%s is not implemented", op)
	}
	return h(c, p)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// opcodeLabel skips a label marker. The loader strips labels when it
// packs code; one surviving in the stream is harmless.
func opcodeLabel(c *Context, p *Process) (DispatchResult, error) {
	// Structure: label(n)
	c.assertArity(OpLabel, 1)
	c.FetchTerm()
	return DispatchNormal, nil
}

// opcodeIntCodeEnd marks the end of module code.
func opcodeIntCodeEnd(c *Context, p *Process) (DispatchResult, error) {
	// Structure: int_code_end()
	c.assertArity(OpIntCodeEnd, 0)
	return DispatchFinished, nil
}

// opcodeReturn ends the current run. Continuation-pointer tracking
// belongs to the call instruction family, outside this core.
func opcodeReturn(c *Context, p *Process) (DispatchResult, error) {
	// Structure: return()
	c.assertArity(OpReturn, 0)
	return DispatchFinished, nil
}

// opcodeJump transfers control to a label.
func opcodeJump(c *Context, p *Process) (DispatchResult, error) {
	// Structure: jump(label)
	c.assertArity(OpJump, 1)

	target := c.FetchTerm()
	if err := c.JumpLabel(target.LabelIndex()); err != nil {
		return DispatchNormal, err
	}
	return DispatchControl, nil
}

// opcodeMove loads a value from src and stores it into dst. Source can
// be any literal term, a register or a stack cell. Destination can be
// any register or a stack cell. No source/destination combination is
// special-cased.
func opcodeMove(c *Context, p *Process) (DispatchResult, error) {
	// Structure: move(src, dst)
	c.assertArity(OpMove, 2)

	src := c.FetchTerm()
	dst := c.FetchTerm()
	if err := c.Store(src, dst, p); err != nil {
		return DispatchNormal, err
	}
	return DispatchNormal, nil
}

// opcodeMakeFun2 creates a closure over the fun entry referenced by the
// operand, copying its free variables from the X registers onto the
// process heap. The resulting closure lands in x0.
func opcodeMakeFun2(c *Context, p *Process) (DispatchResult, error) {
	// Structure: make_fun2(lambda_index) - the loader has already swapped
	// the lambda index for a boxed fun entry reference.
	c.assertArity(OpMakeFun2, 1)

	feBox := c.FetchTerm()
	fe := FunEntryFromTerm(feBox)

	closure, err := makeClosure(fe, p)
	if err != nil {
		return DispatchNormal, err
	}
	if err := p.SetXReg(0, closure); err != nil {
		return DispatchNormal, err
	}
	return DispatchNormal, nil
}
