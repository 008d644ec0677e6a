package loader

import (
	"testing"

	"github.com/gert-vm/gert/vm"
)

// TestFromWordBoundary pins the small/big promotion boundary to the
// exact threshold the runtime small constructor uses.
func TestFromWordBoundary(t *testing.T) {
	if _, ok := FromWord(0).(SmallInt); !ok {
		t.Error("FromWord(0) should be SmallInt")
	}
	if _, ok := FromWord(vm.MaxSmallWord - 1).(SmallInt); !ok {
		t.Error("FromWord(MaxSmallWord-1) should be SmallInt")
	}

	big, ok := FromWord(vm.MaxSmallWord).(BigInt)
	if !ok {
		t.Fatal("FromWord(MaxSmallWord) should be BigInt")
	}
	if big.Int.Uint64() != vm.MaxSmallWord {
		t.Errorf("BigInt value = %v, want %d", big.Int, vm.MaxSmallWord)
	}
	if _, ok := FromWord(^uint64(0)).(BigInt); !ok {
		t.Error("FromWord(max word) should be BigInt")
	}
}

// TestFromWordNoTruncation converts the largest promotable word through
// ToRuntime and checks the value survives intact.
func TestFromWordNoTruncation(t *testing.T) {
	ft := FromWord(vm.MaxSmallWord - 1)
	term, err := ToRuntime(ft)
	if err != nil {
		t.Fatalf("ToRuntime: %v", err)
	}
	if got := term.SmallValue(); got != vm.MaxSmall {
		t.Errorf("SmallValue = %d, want %d", got, vm.MaxSmall)
	}
}

func TestToRuntimeSafeVariants(t *testing.T) {
	tests := []struct {
		name string
		ft   FTerm
		want vm.Term
	}{
		{"atom", Atom(7), vm.MakeAtom(7)},
		{"small", SmallInt(-42), vm.MakeSmall(-42)},
		{"xreg", XReg(3), vm.MakeXReg(3)},
		{"yreg", YReg(1), vm.MakeYReg(1)},
		{"fpreg", FPReg(0), vm.MakeFPReg(0)},
		{"label", Label(9), vm.MakeLabel(9)},
		{"loadword", LoadWord(100), vm.MakeSmall(100)},
		{"nil", Nil{}, vm.NilTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRuntime(tt.ft)
			if err != nil {
				t.Fatalf("ToRuntime: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToRuntime = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestToRuntimeRejectsLoadtime verifies load-time-only variants fail
// loudly instead of coercing.
func TestToRuntimeRejectsLoadtime(t *testing.T) {
	loadtime := []FTerm{
		LoadAtom(1),
		LoadLiteral(0),
		ExtList{SmallInt(1)},
		AllocList{},
	}

	for _, ft := range loadtime {
		_, err := ToRuntime(ft)
		if err == nil {
			t.Errorf("ToRuntime(%s) should fail", variantName(ft))
			continue
		}
		if !vm.IsFaultKind(err, vm.FaultNotRuntime) {
			t.Errorf("ToRuntime(%s) error = %v, want not_runtime fault", variantName(ft), err)
		}
	}
}

// TestToRuntimeOutOfRange verifies oversized integer operands come back
// as errors. Decoded images carry arbitrary words, so the conversion
// must never panic on one.
func TestToRuntimeOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		ft   FTerm
	}{
		{"loadword at boundary", LoadWord(vm.MaxSmallWord)},
		{"loadword max", LoadWord(^uint64(0))},
		{"small above max", SmallInt(vm.MaxSmall + 1)},
		{"small below min", SmallInt(vm.MinSmall - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToRuntime(tt.ft)
			if err == nil {
				t.Fatalf("ToRuntime(%s) should fail", variantName(tt.ft))
			}
			if !vm.IsFaultKind(err, vm.FaultBadTag) {
				t.Errorf("error = %v, want bad_tag fault", err)
			}
		})
	}
}

func TestToRuntimeSeqExtList(t *testing.T) {
	ext := ExtList{SmallInt(5), Label(2), Atom(1), Label(4)}

	words, err := ToRuntimeSeq(ext)
	if err != nil {
		t.Fatalf("ToRuntimeSeq: %v", err)
	}
	if len(words) != 5 {
		t.Fatalf("got %d words, want 5 (header + 4 entries)", len(words))
	}
	if got := words[0].HeaderArity(); got != 4 {
		t.Errorf("header arity = %d, want 4", got)
	}
	want := []vm.Term{vm.MakeSmall(5), vm.MakeLabel(2), vm.MakeAtom(1), vm.MakeLabel(4)}
	for i, w := range want {
		if words[i+1] != w {
			t.Errorf("word %d = %s, want %s", i+1, words[i+1], w)
		}
	}
}

func TestToRuntimeSeqRejectsOthers(t *testing.T) {
	for _, ft := range []FTerm{SmallInt(1), Tuple{Atom(0)}, AllocList{}} {
		if _, err := ToRuntimeSeq(ft); err == nil {
			t.Errorf("ToRuntimeSeq(%s) should fail", variantName(ft))
		}
	}
}

// TestToRuntimeSeqUnresolvedEntry checks an extlist still carrying a
// load-time atom fails as a whole.
func TestToRuntimeSeqUnresolvedEntry(t *testing.T) {
	_, err := ToRuntimeSeq(ExtList{SmallInt(1), LoadAtom(0)})
	if !vm.IsFaultKind(err, vm.FaultNotRuntime) {
		t.Errorf("error = %v, want not_runtime fault", err)
	}
}

func TestLoadtimeAccessors(t *testing.T) {
	idx, err := LoadtimeAtomIndex(LoadAtom(4))
	if err != nil || idx != 4 {
		t.Errorf("LoadtimeAtomIndex = %d, %v", idx, err)
	}
	if _, err := LoadtimeAtomIndex(SmallInt(4)); err == nil {
		t.Error("LoadtimeAtomIndex(SmallInt) should fail")
	}

	w, err := LoadtimeWord(LoadWord(19))
	if err != nil || w != 19 {
		t.Errorf("LoadtimeWord = %d, %v", w, err)
	}
	if _, err := LoadtimeWord(Atom(19)); err == nil {
		t.Error("LoadtimeWord(Atom) should fail")
	}
}
