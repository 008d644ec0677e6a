package loader

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/gert-vm/gert/vm"
)

var log = commonlog.GetLogger("gert.loader")

// Instr is one decoded instruction: an opcode plus its friendly-term
// operands, exactly as the bytecode reader produced them.
type Instr struct {
	Op   vm.Opcode
	Args []FTerm
}

// Module is a loaded code unit: the packed instruction stream plus the
// tables resolution and closure creation consult. The execution core
// reads these tables; it never writes them.
type Module struct {
	Name vm.Term // atom naming the module

	// Atoms is the load-time atom snapshot: ordered runtime atoms
	// indexed by the module's load-time atom indices.
	Atoms []vm.Term

	Literals []vm.Term      // literal table, indexed by LoadLiteral
	Labels   map[uint]int   // label number -> code offset
	Funs     []*vm.FunEntry // fun table, indexed by make_fun2 operand
	Code     []vm.Term      // packed instruction stream
}

// NewModule creates an empty module named name, interning the name into
// the given atom table.
func NewModule(name string, atoms *vm.AtomTable) *Module {
	return &Module{
		Name:   atoms.Intern(name),
		Labels: make(map[uint]int),
	}
}

// LoadAtoms interns the module's atom section in order, building the
// snapshot the resolution pass indexes by load-time atom index.
func (m *Module) LoadAtoms(names []string, atoms *vm.AtomTable) {
	for _, n := range names {
		m.Atoms = append(m.Atoms, atoms.Intern(n))
	}
}

// AddLiteral appends a term to the literal table and returns its index.
func (m *Module) AddLiteral(t vm.Term) uint {
	m.Literals = append(m.Literals, t)
	return uint(len(m.Literals) - 1)
}

// AddFun appends a fun entry and returns its lambda index.
func (m *Module) AddFun(fe *vm.FunEntry) uint {
	m.Funs = append(m.Funs, fe)
	return uint(len(m.Funs) - 1)
}

// Context returns a fresh decoding context over the assembled code.
func (m *Module) Context() *vm.Context {
	return vm.NewContext(m.Code, m.Labels)
}

// Assemble packs decoded instructions into the module's code stream.
// Each instruction's operand count is validated against the genop table;
// atoms are resolved through the module snapshot; labels are recorded
// and stripped; literal and lambda indices are swapped for the table
// entries they name. Any load-time placeholder still standing after
// that is a loader defect and aborts the assembly.
func (m *Module) Assemble(instrs []Instr) error {
	for _, ins := range instrs {
		arity := vm.OpArity(ins.Op)
		if arity < 0 {
			return fmt.Errorf("unknown opcode %d", uint16(ins.Op))
		}
		if len(ins.Args) != arity {
			return fmt.Errorf("%s: decoded %d operands, table declares %d",
				ins.Op, len(ins.Args), arity)
		}

		if ins.Op == vm.OpLabel {
			n, err := labelNumber(ins.Args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", ins.Op, err)
			}
			m.Labels[n] = len(m.Code)
			continue
		}

		if err := m.validateWritable(ins); err != nil {
			return err
		}

		m.Code = append(m.Code, vm.MakeSmall(int64(ins.Op)))
		for i, arg := range ins.Args {
			words, err := m.operandWords(ins.Op, i, arg)
			if err != nil {
				return fmt.Errorf("%s operand %d: %w", ins.Op, i, err)
			}
			m.Code = append(m.Code, words...)
		}
	}

	log.Debugf("assembled module %s: %d code words, %d labels, %d funs",
		m.Name, len(m.Code), len(m.Labels), len(m.Funs))
	return nil
}

// operandWords converts one operand into its packed word(s).
func (m *Module) operandWords(op vm.Opcode, pos int, arg FTerm) ([]vm.Term, error) {
	resolved, changed, err := ResolveAtoms(arg, m.Atoms)
	if err != nil {
		return nil, err
	}
	if changed {
		arg = resolved
	}

	// make_fun2 takes a lambda index; the packed operand is a boxed
	// reference into the fun table.
	if op == vm.OpMakeFun2 && pos == 0 {
		idx, err := LoadtimeWord(arg)
		if err != nil {
			return nil, err
		}
		if idx >= uint64(len(m.Funs)) {
			return nil, fmt.Errorf("lambda index %d outside fun table of %d", idx, len(m.Funs))
		}
		return []vm.Term{m.Funs[idx].BoxedTerm()}, nil
	}

	switch t := arg.(type) {
	case LoadLiteral:
		if uint(t) >= uint(len(m.Literals)) {
			return nil, fmt.Errorf("literal index %d outside table of %d", uint(t), len(m.Literals))
		}
		return []vm.Term{m.Literals[t]}, nil
	case ExtList:
		return ToRuntimeSeq(t)
	default:
		w, err := ToRuntime(arg)
		if err != nil {
			return nil, err
		}
		return []vm.Term{w}, nil
	}
}

// validateWritable rejects non-writable destination operands at load
// time, before any instruction can reach Store with them.
func (m *Module) validateWritable(ins Instr) error {
	if ins.Op != vm.OpMove {
		return nil
	}
	switch ins.Args[1].(type) {
	case XReg, YReg:
		return nil
	default:
		return fmt.Errorf("%s: %s is not a writable destination",
			ins.Op, variantName(ins.Args[1]))
	}
}

func labelNumber(arg FTerm) (uint, error) {
	switch t := arg.(type) {
	case Label:
		return uint(t), nil
	case LoadWord:
		return uint(t), nil
	default:
		return 0, fmt.Errorf("expected label, got %s", variantName(arg))
	}
}
