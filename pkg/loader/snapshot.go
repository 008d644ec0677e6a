package loader

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/gert-vm/gert/vm"
)

// cborOpts returns CBOR encoding options with canonical mode for
// deterministic encoding, so two snapshots of the same module are
// byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	cborEncMode = em
}

// ---------------------------------------------------------------------------
// Module snapshot: the loadable form of a module as canonical CBOR
// ---------------------------------------------------------------------------

// ModuleImage is a module in its pre-assembly form: symbolic atom names,
// fun declarations and friendly-term instruction operands. Packed code
// contains raw pointers and is never serialized; an image is re-packed
// through Load on the receiving side, re-interning atoms into that
// runtime's table.
type ModuleImage struct {
	Name   string       `cbor:"1,keyasint"`
	Atoms  []string     `cbor:"2,keyasint"`
	Funs   []FunImage   `cbor:"3,keyasint"`
	Instrs []InstrImage `cbor:"4,keyasint"`
}

// FunImage declares one fun of the module by name.
type FunImage struct {
	Module  string `cbor:"1,keyasint"`
	Name    string `cbor:"2,keyasint"`
	Arity   int    `cbor:"3,keyasint"`
	NumFree int    `cbor:"4,keyasint"`
	Label   uint   `cbor:"5,keyasint"`
}

// InstrImage is one instruction with serialized operands.
type InstrImage struct {
	Op   uint16      `cbor:"1,keyasint"`
	Args []TermImage `cbor:"2,keyasint"`
}

// TermImage is the serialized form of a friendly term.
type TermImage struct {
	Kind  string      `cbor:"1,keyasint"`
	Word  uint64      `cbor:"2,keyasint,omitempty"`
	Int   int64       `cbor:"3,keyasint,omitempty"`
	Float float64     `cbor:"4,keyasint,omitempty"`
	Bytes []byte      `cbor:"5,keyasint,omitempty"`
	Neg   bool        `cbor:"6,keyasint,omitempty"`
	Items []TermImage `cbor:"7,keyasint,omitempty"`
}

// NewModuleImage creates an image with the given name and atom section.
func NewModuleImage(name string, atomNames []string) *ModuleImage {
	return &ModuleImage{Name: name, Atoms: atomNames}
}

// AddFun declares a fun and returns its lambda index.
func (mi *ModuleImage) AddFun(f FunImage) uint {
	mi.Funs = append(mi.Funs, f)
	return uint(len(mi.Funs) - 1)
}

// AddInstr appends an instruction with friendly-term operands.
func (mi *ModuleImage) AddInstr(op vm.Opcode, args ...FTerm) error {
	imgs := make([]TermImage, len(args))
	for i, a := range args {
		img, err := termToImage(a)
		if err != nil {
			return fmt.Errorf("%s operand %d: %w", op, i, err)
		}
		imgs[i] = img
	}
	mi.Instrs = append(mi.Instrs, InstrImage{Op: uint16(op), Args: imgs})
	return nil
}

// Encode serializes the image as canonical CBOR.
func (mi *ModuleImage) Encode() ([]byte, error) {
	return cborEncMode.Marshal(mi)
}

// DecodeModuleImage parses a canonical CBOR module image.
func DecodeModuleImage(data []byte) (*ModuleImage, error) {
	var mi ModuleImage
	if err := cbor.Unmarshal(data, &mi); err != nil {
		return nil, fmt.Errorf("decoding module image: %w", err)
	}
	return &mi, nil
}

// Load assembles the image into an executable module, interning all
// atom names into the given table.
func (mi *ModuleImage) Load(atoms *vm.AtomTable) (*Module, error) {
	m := NewModule(mi.Name, atoms)
	m.LoadAtoms(mi.Atoms, atoms)

	for _, f := range mi.Funs {
		m.AddFun(&vm.FunEntry{
			Module:  atoms.Intern(f.Module),
			Name:    atoms.Intern(f.Name),
			Arity:   f.Arity,
			NumFree: f.NumFree,
			Label:   f.Label,
		})
	}

	instrs := make([]Instr, len(mi.Instrs))
	for i, ins := range mi.Instrs {
		args := make([]FTerm, len(ins.Args))
		for j, a := range ins.Args {
			ft, err := imageToTerm(a)
			if err != nil {
				return nil, fmt.Errorf("instruction %d operand %d: %w", i, j, err)
			}
			args[j] = ft
		}
		instrs[i] = Instr{Op: vm.Opcode(ins.Op), Args: args}
	}

	if err := m.Assemble(instrs); err != nil {
		return nil, err
	}
	return m, nil
}

func termToImage(ft FTerm) (TermImage, error) {
	switch t := ft.(type) {
	case Atom:
		return TermImage{Kind: "atom", Word: uint64(t)}, nil
	case SmallInt:
		return TermImage{Kind: "small", Int: int64(t)}, nil
	case BigInt:
		return TermImage{Kind: "big", Bytes: t.Int.Bytes(), Neg: t.Int.Sign() < 0}, nil
	case Float:
		return TermImage{Kind: "float", Float: float64(t)}, nil
	case Nil:
		return TermImage{Kind: "nil"}, nil
	case Tuple0:
		return TermImage{Kind: "tuple0"}, nil
	case Cons:
		items, err := termsToImages(t[:])
		if err != nil {
			return TermImage{}, err
		}
		return TermImage{Kind: "cons", Items: items}, nil
	case Tuple:
		items, err := termsToImages(t)
		if err != nil {
			return TermImage{}, err
		}
		return TermImage{Kind: "tuple", Items: items}, nil
	case ExtList:
		items, err := termsToImages(t)
		if err != nil {
			return TermImage{}, err
		}
		return TermImage{Kind: "extlist", Items: items}, nil
	case XReg:
		return TermImage{Kind: "xreg", Word: uint64(t)}, nil
	case YReg:
		return TermImage{Kind: "yreg", Word: uint64(t)}, nil
	case FPReg:
		return TermImage{Kind: "fpreg", Word: uint64(t)}, nil
	case Label:
		return TermImage{Kind: "label", Word: uint64(t)}, nil
	case LoadAtom:
		return TermImage{Kind: "loadatom", Word: uint64(t)}, nil
	case LoadWord:
		return TermImage{Kind: "loadword", Word: uint64(t)}, nil
	case LoadLiteral:
		return TermImage{Kind: "loadliteral", Word: uint64(t)}, nil
	case AllocList:
		return TermImage{Kind: "alloclist"}, nil
	}
	return TermImage{}, fmt.Errorf("cannot serialize %s", variantName(ft))
}

func imageToTerm(img TermImage) (FTerm, error) {
	switch img.Kind {
	case "atom":
		return Atom(img.Word), nil
	case "small":
		return SmallInt(img.Int), nil
	case "big":
		n := new(big.Int).SetBytes(img.Bytes)
		if img.Neg {
			n.Neg(n)
		}
		return BigInt{Int: n}, nil
	case "float":
		return Float(img.Float), nil
	case "nil":
		return Nil{}, nil
	case "tuple0":
		return Tuple0{}, nil
	case "cons":
		items, err := imagesToTerms(img.Items)
		if err != nil {
			return nil, err
		}
		if len(items) != 2 {
			return nil, fmt.Errorf("cons image with %d children", len(items))
		}
		return Cons{items[0], items[1]}, nil
	case "tuple":
		items, err := imagesToTerms(img.Items)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case "extlist":
		items, err := imagesToTerms(img.Items)
		if err != nil {
			return nil, err
		}
		return ExtList(items), nil
	case "xreg":
		return XReg(img.Word), nil
	case "yreg":
		return YReg(img.Word), nil
	case "fpreg":
		return FPReg(img.Word), nil
	case "label":
		return Label(img.Word), nil
	case "loadatom":
		return LoadAtom(img.Word), nil
	case "loadword":
		return LoadWord(img.Word), nil
	case "loadliteral":
		return LoadLiteral(img.Word), nil
	case "alloclist":
		return AllocList{}, nil
	}
	return nil, fmt.Errorf("unknown term image kind %q", img.Kind)
}

func termsToImages(fts []FTerm) ([]TermImage, error) {
	out := make([]TermImage, len(fts))
	for i, ft := range fts {
		img, err := termToImage(ft)
		if err != nil {
			return nil, err
		}
		out[i] = img
	}
	return out, nil
}

func imagesToTerms(imgs []TermImage) ([]FTerm, error) {
	out := make([]FTerm, len(imgs))
	for i, img := range imgs {
		ft, err := imageToTerm(img)
		if err != nil {
			return nil, err
		}
		out[i] = ft
	}
	return out, nil
}
