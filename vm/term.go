package vm

import (
	"fmt"
	"unsafe"
)

// Term represents a runtime value as a single tagged machine word.
//
// The low 3 bits carry the category tag; the remaining 61 bits carry the
// payload. Boxed terms store an 8-byte-aligned pointer with the tag OR'd
// into the (always zero) low bits, so immediate-vs-boxed is a mask test
// and never requires a dereference.
//
// Encoding scheme:
//   - SmallInt: signed 61-bit payload << 3 | tagSmall
//   - Boxed:    aligned pointer | tagBoxed
//   - Atom:     atom table index << 3 | tagAtom
//   - XReg:     register index << 3 | tagXReg
//   - YReg:     stack slot index << 3 | tagYReg
//   - FPReg:    float register index << 3 | tagFPReg
//   - Label:    code label << 3 | tagLabel
//   - Special:  subtag in bits 3-5 (nil, header), payload in bits 6+
type Term uint64

// Primary tags (low 3 bits)
const (
	tagSmall   uint64 = 0
	tagBoxed   uint64 = 1
	tagAtom    uint64 = 2
	tagXReg    uint64 = 3
	tagYReg    uint64 = 4
	tagFPReg   uint64 = 5
	tagLabel   uint64 = 6
	tagSpecial uint64 = 7

	termTagMask uint64 = 0x7
	termTagBits        = 3
)

// Special subtags (bits 3-5 when the primary tag is tagSpecial)
const (
	specialNil    uint64 = 0
	specialHeader uint64 = 1

	specialSubMask uint64 = 0x7 << 3
	specialShift          = 6
)

// NilTerm is the empty list. Not the zero Term: Term(0) is SmallInt 0.
const NilTerm Term = Term(specialNil<<termTagBits | tagSpecial)

// SmallInt range (signed 61-bit payload).
const (
	MaxSmall int64 = (1 << 60) - 1
	MinSmall int64 = -(1 << 60)

	// MaxSmallWord is the first unsigned word that no longer fits a
	// SmallInt. The loader's small/big promotion uses exactly this
	// boundary; anything else silently truncates on conversion.
	MaxSmallWord uint64 = 1 << 60
)

// ---------------------------------------------------------------------------
// Constructors: one per category, no generic wrap-anything path
// ---------------------------------------------------------------------------

// MakeSmall creates a small integer term. v must lie in [MinSmall, MaxSmall].
func MakeSmall(v int64) Term {
	if v > MaxSmall || v < MinSmall {
		panic(newFault(FaultBadTag, "small integer %d outside 61-bit range", v))
	}
	return Term(uint64(v)<<termTagBits | tagSmall)
}

// MakeSmallWord creates a small integer term from an unsigned word.
func MakeSmallWord(w uint64) Term {
	if w >= MaxSmallWord {
		panic(newFault(FaultBadTag, "word %d outside small integer range", w))
	}
	return Term(w<<termTagBits | tagSmall)
}

// MakeAtom creates an atom reference term from an atom table index.
func MakeAtom(index uint) Term {
	return Term(uint64(index)<<termTagBits | tagAtom)
}

// MakeBoxed creates a boxed term referencing a heap-resident structure.
// p must be 8-byte aligned and non-nil. The term carries no secondary tag
// for the payload kind; the caller knows the expected structure from
// context.
func MakeBoxed(p unsafe.Pointer) Term {
	addr := uint64(uintptr(p))
	if addr == 0 {
		panic(newFault(FaultBadTag, "boxed term from nil pointer"))
	}
	if addr&termTagMask != 0 {
		panic(newFault(FaultBadTag, "boxed pointer %#x not 8-byte aligned", addr))
	}
	return Term(addr | tagBoxed)
}

// MakeXReg creates an X register reference.
func MakeXReg(index uint) Term {
	return Term(uint64(index)<<termTagBits | tagXReg)
}

// MakeYReg creates a Y (stack slot) reference, relative to the current frame.
func MakeYReg(index uint) Term {
	return Term(uint64(index)<<termTagBits | tagYReg)
}

// MakeFPReg creates a floating-point register reference.
func MakeFPReg(index uint) Term {
	return Term(uint64(index)<<termTagBits | tagFPReg)
}

// MakeLabel creates a code label reference.
func MakeLabel(index uint) Term {
	return Term(uint64(index)<<termTagBits | tagLabel)
}

// MakeHeader creates a header word marking a compound structure of n words.
func MakeHeader(n uint) Term {
	return Term(uint64(n)<<specialShift | specialHeader<<termTagBits | tagSpecial)
}

// ---------------------------------------------------------------------------
// Category predicates: exactly one is true for any constructed term
// ---------------------------------------------------------------------------

func (t Term) tag() uint64 { return uint64(t) & termTagMask }

// IsSmall returns true if t is a small integer.
func (t Term) IsSmall() bool { return t.tag() == tagSmall }

// IsBoxed returns true if t references a heap-resident structure.
func (t Term) IsBoxed() bool { return t.tag() == tagBoxed }

// IsAtom returns true if t is an atom reference.
func (t Term) IsAtom() bool { return t.tag() == tagAtom }

// IsXReg returns true if t is an X register reference.
func (t Term) IsXReg() bool { return t.tag() == tagXReg }

// IsYReg returns true if t is a Y stack slot reference.
func (t Term) IsYReg() bool { return t.tag() == tagYReg }

// IsFPReg returns true if t is a float register reference.
func (t Term) IsFPReg() bool { return t.tag() == tagFPReg }

// IsLabel returns true if t is a label reference.
func (t Term) IsLabel() bool { return t.tag() == tagLabel }

// IsNil returns true if t is the empty list.
func (t Term) IsNil() bool { return t == NilTerm }

// IsHeader returns true if t is a compound structure header word.
func (t Term) IsHeader() bool {
	return t.tag() == tagSpecial && uint64(t)&specialSubMask == specialHeader<<termTagBits
}

// IsImmediate returns true if t is fully encoded in the word itself.
// The garbage collector relies on this never being true for a boxed term.
func (t Term) IsImmediate() bool { return t.tag() != tagBoxed }

// ---------------------------------------------------------------------------
// Accessors: tag-checked, fail fast on category mismatch
// ---------------------------------------------------------------------------
//
// Calling an accessor on a term of a different category panics with a
// *Fault of kind FaultBadTag. The dispatch loop recovers these at the
// instruction boundary and crashes the running process; a tagging bug is
// never allowed to read garbage.

func (t Term) check(want uint64, name string) {
	if t.tag() != want {
		panic(newFault(FaultBadTag, "expected %s, got %s", name, t.kindName()))
	}
}

// SmallValue returns the signed payload of a small integer term.
func (t Term) SmallValue() int64 {
	t.check(tagSmall, "small")
	return int64(t) >> termTagBits
}

// AtomIndex returns the atom table index of an atom term.
func (t Term) AtomIndex() uint {
	t.check(tagAtom, "atom")
	return uint(t >> termTagBits)
}

// BoxPtr returns the raw payload pointer of a boxed term. The caller is
// responsible for knowing the expected structure type from context.
func (t Term) BoxPtr() unsafe.Pointer {
	t.check(tagBoxed, "boxed")
	return unsafe.Pointer(uintptr(uint64(t) &^ termTagMask))
}

// XRegIndex returns the register index of an X register reference.
func (t Term) XRegIndex() uint {
	t.check(tagXReg, "xreg")
	return uint(t >> termTagBits)
}

// YRegIndex returns the stack slot index of a Y register reference.
func (t Term) YRegIndex() uint {
	t.check(tagYReg, "yreg")
	return uint(t >> termTagBits)
}

// FPRegIndex returns the register index of a float register reference.
func (t Term) FPRegIndex() uint {
	t.check(tagFPReg, "fpreg")
	return uint(t >> termTagBits)
}

// LabelIndex returns the label number of a label reference.
func (t Term) LabelIndex() uint {
	t.check(tagLabel, "label")
	return uint(t >> termTagBits)
}

// HeaderArity returns the word count carried by a header term.
func (t Term) HeaderArity() uint {
	if !t.IsHeader() {
		panic(newFault(FaultBadTag, "expected header, got %s", t.kindName()))
	}
	return uint(t >> specialShift)
}

func (t Term) kindName() string {
	switch t.tag() {
	case tagSmall:
		return "small"
	case tagBoxed:
		return "boxed"
	case tagAtom:
		return "atom"
	case tagXReg:
		return "xreg"
	case tagYReg:
		return "yreg"
	case tagFPReg:
		return "fpreg"
	case tagLabel:
		return "label"
	case tagSpecial:
		if t == NilTerm {
			return "nil"
		}
		if t.IsHeader() {
			return "header"
		}
		return "special"
	}
	return "unknown"
}

// String renders a term for diagnostics and crash reports.
func (t Term) String() string {
	switch t.tag() {
	case tagSmall:
		return fmt.Sprintf("%d", t.SmallValue())
	case tagBoxed:
		return fmt.Sprintf("boxed(%#x)", uint64(t)&^termTagMask)
	case tagAtom:
		return fmt.Sprintf("atom(%d)", t.AtomIndex())
	case tagXReg:
		return fmt.Sprintf("x%d", t.XRegIndex())
	case tagYReg:
		return fmt.Sprintf("y%d", t.YRegIndex())
	case tagFPReg:
		return fmt.Sprintf("fp%d", t.FPRegIndex())
	case tagLabel:
		return fmt.Sprintf("label(%d)", t.LabelIndex())
	case tagSpecial:
		if t == NilTerm {
			return "[]"
		}
		if t.IsHeader() {
			return fmt.Sprintf("header(%d)", t.HeaderArity())
		}
	}
	return fmt.Sprintf("term(%#x)", uint64(t))
}
