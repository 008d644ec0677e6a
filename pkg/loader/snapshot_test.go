package loader

import (
	"bytes"
	"testing"

	"github.com/gert-vm/gert/vm"
)

func demoImage(t *testing.T) *ModuleImage {
	t.Helper()

	image := NewModuleImage("demo", []string{"demo", "start", "stop"})
	image.AddFun(FunImage{Module: "demo", Name: "start", Arity: 0, NumFree: 1, Label: 1})

	instrs := []struct {
		op   vm.Opcode
		args []FTerm
	}{
		{vm.OpLabel, []FTerm{Label(1)}},
		{vm.OpMove, []FTerm{SmallInt(42), XReg(0)}},
		{vm.OpMove, []FTerm{LoadAtom(1), XReg(1)}},
		{vm.OpMove, []FTerm{XReg(1), YReg(0)}},
		{vm.OpMakeFun2, []FTerm{LoadWord(0)}},
		{vm.OpReturn, nil},
	}
	for _, ins := range instrs {
		if err := image.AddInstr(ins.op, ins.args...); err != nil {
			t.Fatalf("AddInstr(%s): %v", ins.op, err)
		}
	}
	return image
}

func TestImageEncodeDeterministic(t *testing.T) {
	image := demoImage(t)

	a, err := image.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := image.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding must be deterministic")
	}
}

func TestImageRoundTrip(t *testing.T) {
	image := demoImage(t)

	data, err := image.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeModuleImage(data)
	if err != nil {
		t.Fatalf("DecodeModuleImage: %v", err)
	}

	if decoded.Name != image.Name {
		t.Errorf("name = %q, want %q", decoded.Name, image.Name)
	}
	if len(decoded.Atoms) != len(image.Atoms) {
		t.Fatalf("atom section has %d names, want %d", len(decoded.Atoms), len(image.Atoms))
	}
	if len(decoded.Instrs) != len(image.Instrs) {
		t.Fatalf("instr section has %d entries, want %d", len(decoded.Instrs), len(image.Instrs))
	}
}

// TestImageLoadAndRun decodes an image and runs the assembled module,
// proving the snapshot carries everything loading needs.
func TestImageLoadAndRun(t *testing.T) {
	data, err := demoImage(t).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeModuleImage(data)
	if err != nil {
		t.Fatalf("DecodeModuleImage: %v", err)
	}

	atoms := vm.NewAtomTable()
	m, err := decoded.Load(atoms)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := vm.NewProcess(vm.DefaultLimits())
	s := vm.NewScheduler(100)
	if status := s.RunSlice(p, m.Context()); status != vm.StatusFinished {
		t.Fatalf("status = %s (fault %v)", status, p.Fault)
	}

	// y0 holds the 'start' atom moved through x1
	text, err := atoms.ResolveTerm(p.Stack[0])
	if err != nil {
		t.Fatalf("ResolveTerm: %v", err)
	}
	if text != "start" {
		t.Errorf("y0 = %q, want %q", text, "start")
	}

	// x0 holds the closure created over x0 (42)
	closure := p.X[0]
	if !closure.IsBoxed() {
		t.Fatal("x0 should hold a closure")
	}
	frees := vm.ClosureFrees(closure)
	if len(frees) != 1 || frees[0].SmallValue() != 42 {
		t.Errorf("frees = %v, want [42]", frees)
	}
}

// TestImageTermKinds round-trips every serializable friendly term kind.
func TestImageTermKinds(t *testing.T) {
	terms := []FTerm{
		Atom(1),
		SmallInt(-5),
		FromWord(vm.MaxSmallWord), // BigInt
		Float(2.5),
		Nil{},
		Tuple0{},
		Cons{SmallInt(1), Nil{}},
		Tuple{Atom(0), SmallInt(2)},
		ExtList{LoadAtom(0), Label(1)},
		XReg(3),
		YReg(4),
		FPReg(5),
		Label(6),
		LoadAtom(7),
		LoadWord(8),
		LoadLiteral(9),
		AllocList{},
	}

	for _, ft := range terms {
		img, err := termToImage(ft)
		if err != nil {
			t.Errorf("termToImage(%s): %v", variantName(ft), err)
			continue
		}
		back, err := imageToTerm(img)
		if err != nil {
			t.Errorf("imageToTerm(%s): %v", variantName(ft), err)
			continue
		}
		if variantName(back) != variantName(ft) {
			t.Errorf("round trip changed %s into %s", variantName(ft), variantName(back))
		}
	}
}

// TestImageOversizedWordOperand loads an image whose loadword operand
// exceeds the tagged small range. Images are untrusted input, so the
// load must fail with an error, never panic.
func TestImageOversizedWordOperand(t *testing.T) {
	image := NewModuleImage("demo", []string{"demo"})
	if err := image.AddInstr(vm.OpMove, LoadWord(vm.MaxSmallWord), XReg(0)); err != nil {
		t.Fatalf("AddInstr: %v", err)
	}

	data, err := image.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeModuleImage(data)
	if err != nil {
		t.Fatalf("DecodeModuleImage: %v", err)
	}

	_, err = decoded.Load(vm.NewAtomTable())
	if err == nil {
		t.Fatal("Load should reject an oversized word operand")
	}
	if !vm.IsFaultKind(err, vm.FaultBadTag) {
		t.Errorf("error = %v, want bad_tag fault", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeModuleImage([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("garbage bytes should fail to decode")
	}
}
