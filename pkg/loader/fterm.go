// Package loader holds the load-time half of the term model: friendly
// terms decoded from bytecode, the atom resolution pass, and module
// assembly into packed code the vm package executes. Friendly terms are
// transient; nothing in this package survives past loading.
package loader

import (
	"fmt"
	"math/big"

	"github.com/gert-vm/gert/vm"
)

// FTerm is the developer-friendly term representation used only while a
// module is being loaded. Variants split into two disjoint families:
// runtime-safe values that convert one-for-one into vm.Term, and
// load-time-only placeholders that must be resolved away before loading
// completes. Mixing the two at runtime fails loudly, never coerces.
type FTerm interface {
	fterm()
}

// ---------------------------------------------------------------------------
// Runtime-safe variants
// ---------------------------------------------------------------------------

// Atom is a resolved runtime atom index.
type Atom uint

// SmallInt is a signed integer within the tagged small range.
type SmallInt int64

// BigInt is an integer promoted past the small range.
type BigInt struct{ Int *big.Int }

// Float is a floating point constant.
type Float float64

// Cons is a cons cell: head and tail.
type Cons [2]FTerm

// Nil is the empty list.
type Nil struct{}

// Tuple is a tuple of at least one element.
type Tuple []FTerm

// Tuple0 is the zero-arity tuple, kept distinct from Tuple.
type Tuple0 struct{}

// XReg is an X register reference.
type XReg uint

// YReg is a stack slot reference.
type YReg uint

// FPReg is a float register reference.
type FPReg uint

// ---------------------------------------------------------------------------
// Load-time-only variants. None of these survive in a loaded module:
// Label and LoadWord pack directly into label and small integer words,
// the rest must be resolved or expanded away by the assembler, and a
// leftover shows up as a FaultNotRuntime error.
// ---------------------------------------------------------------------------

// Label is a load-time label reference.
type Label uint

// LoadAtom is an index into the module's load-time atom table, not the
// global one. The resolution pass rewrites it into Atom.
type LoadAtom uint

// LoadWord is a literally specified raw word.
type LoadWord uint64

// LoadLiteral is an index into the module's literal heap.
type LoadLiteral uint

// ExtList is a jump table: a list of value/label pairs.
type ExtList []FTerm

// AllocList is an allocation-list placeholder.
type AllocList struct{}

func (Atom) fterm()        {}
func (SmallInt) fterm()    {}
func (BigInt) fterm()      {}
func (Float) fterm()       {}
func (Cons) fterm()        {}
func (Nil) fterm()         {}
func (Tuple) fterm()       {}
func (Tuple0) fterm()      {}
func (XReg) fterm()        {}
func (YReg) fterm()        {}
func (FPReg) fterm()       {}
func (Label) fterm()       {}
func (LoadAtom) fterm()    {}
func (LoadWord) fterm()    {}
func (LoadLiteral) fterm() {}
func (ExtList) fterm()     {}
func (AllocList) fterm()   {}

// FromWord classifies a raw unsigned word: a SmallInt when it fits the
// tagged small range, a BigInt otherwise. The boundary is exactly
// vm.MaxSmallWord; anything else would truncate later in ToRuntime.
func FromWord(w uint64) FTerm {
	if w < vm.MaxSmallWord {
		return SmallInt(int64(w))
	}
	return BigInt{Int: new(big.Int).SetUint64(w)}
}

// variantName names an FTerm variant for diagnostics.
func variantName(ft FTerm) string {
	switch ft.(type) {
	case Atom:
		return "atom"
	case SmallInt:
		return "small"
	case BigInt:
		return "bigint"
	case Float:
		return "float"
	case Cons:
		return "cons"
	case Nil:
		return "nil"
	case Tuple:
		return "tuple"
	case Tuple0:
		return "tuple0"
	case XReg:
		return "xreg"
	case YReg:
		return "yreg"
	case FPReg:
		return "fpreg"
	case Label:
		return "label"
	case LoadAtom:
		return "loadtime_atom"
	case LoadWord:
		return "loadtime_word"
	case LoadLiteral:
		return "loadtime_literal"
	case ExtList:
		return "loadtime_extlist"
	case AllocList:
		return "loadtime_alloclist"
	}
	return fmt.Sprintf("%T", ft)
}

// ---------------------------------------------------------------------------
// Conversion to runtime terms
// ---------------------------------------------------------------------------

// ToRuntime converts a friendly term into its packed equivalent,
// one-for-one. Label and LoadWord are packable despite being load-time
// variants; the unpackable ones (unresolved atoms, literal and extlist
// placeholders) yield an error carrying FaultNotRuntime so the caller
// halts rather than emitting a half-resolved word.
func ToRuntime(ft FTerm) (vm.Term, error) {
	switch t := ft.(type) {
	case Atom:
		return vm.MakeAtom(uint(t)), nil
	case SmallInt:
		if int64(t) > vm.MaxSmall || int64(t) < vm.MinSmall {
			return 0, outOfRange("small integer %d outside tagged range", int64(t))
		}
		return vm.MakeSmall(int64(t)), nil
	case XReg:
		return vm.MakeXReg(uint(t)), nil
	case YReg:
		return vm.MakeYReg(uint(t)), nil
	case FPReg:
		return vm.MakeFPReg(uint(t)), nil
	case Label:
		return vm.MakeLabel(uint(t)), nil
	case LoadWord:
		// Words come straight out of decoded images; an oversized one
		// must surface as a load error, not a panic.
		if uint64(t) >= vm.MaxSmallWord {
			return 0, outOfRange("word %d outside small integer range", uint64(t))
		}
		return vm.MakeSmallWord(uint64(t)), nil
	case Nil:
		return vm.NilTerm, nil
	default:
		return 0, notRuntime(ft, "term")
	}
}

// ToRuntimeSeq expands a compound load-time structure into consecutive
// runtime words: an ExtList becomes a length header followed by its
// encoded entries. Variants without a defined expansion fail the same
// way ToRuntime does.
func ToRuntimeSeq(ft FTerm) ([]vm.Term, error) {
	switch t := ft.(type) {
	case ExtList:
		out := make([]vm.Term, 0, len(t)+1)
		out = append(out, vm.MakeHeader(uint(len(t))))
		for _, x := range t {
			w, err := ToRuntime(x)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	default:
		return nil, notRuntime(ft, "term sequence")
	}
}

// LoadtimeAtomIndex reads ft as a load-time atom reference.
func LoadtimeAtomIndex(ft FTerm) (uint, error) {
	if a, ok := ft.(LoadAtom); ok {
		return uint(a), nil
	}
	return 0, fmt.Errorf("expected loadtime_atom, got %s", variantName(ft))
}

// LoadtimeWord reads ft as a literally specified word.
func LoadtimeWord(ft FTerm) (uint64, error) {
	if w, ok := ft.(LoadWord); ok {
		return uint64(w), nil
	}
	return 0, fmt.Errorf("expected loadtime_word, got %s", variantName(ft))
}

func notRuntime(ft FTerm, what string) error {
	return fmt.Errorf("cannot convert %s to a runtime %s: %w",
		variantName(ft), what, &vm.Fault{Kind: vm.FaultNotRuntime})
}

func outOfRange(format string, v interface{}) error {
	return fmt.Errorf(format+": %w", v, &vm.Fault{Kind: vm.FaultBadTag})
}
