// Gert CLI - loads a demo module and drives the runtime core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/gert-vm/gert/config"
	"github.com/gert-vm/gert/pkg/crashdump"
	"github.com/gert-vm/gert/pkg/loader"
	"github.com/gert-vm/gert/vm"
)

func main() {
	configDir := flag.String("C", "", "Directory containing gert.toml (defaults used when empty)")
	imageOut := flag.String("image", "", "Write the demo module image (canonical CBOR) to this file")
	verbosity := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gert [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the demo modules through the execution core.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	cfg := config.Default()
	if *configDir != "" {
		loaded, err := config.Load(*configDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	atoms := vm.Atoms()

	image, err := demoImage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building demo module: %v\n", err)
		os.Exit(1)
	}
	if *imageOut != "" {
		data, err := image.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding module image: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*imageOut, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing module image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *imageOut, len(data))
	}

	module, err := image.Load(atoms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading demo module: %v\n", err)
		os.Exit(1)
	}
	faulty, err := faultyModule(atoms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading faulty module: %v\n", err)
		os.Exit(1)
	}

	sched := vm.NewScheduler(cfg.Scheduler.Reductions)

	if cfg.CrashDump.Enabled {
		store, err := crashdump.Open(cfg.CrashDump.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening crash dump: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		sched.SetRecorder(store)
	}

	limits := vm.ProcessLimits{
		XRegs:      cfg.Runtime.XRegs,
		FPRegs:     cfg.Runtime.FPRegs,
		StackSlots: cfg.Runtime.StackSlots,
		HeapWords:  cfg.Runtime.HeapWords,
	}

	good := vm.NewProcess(limits)
	bad := vm.NewProcess(limits)
	sched.Spawn(good, module.Context())
	sched.Spawn(bad, faulty.Context())

	sched.Run()

	report(good, atoms)
	report(bad, atoms)
}

// demoImage builds a small module exercising the representative
// instructions: moves across operand kinds and a closure creation.
func demoImage() (*loader.ModuleImage, error) {
	image := loader.NewModuleImage("demo", []string{"demo", "start"})
	image.AddFun(loader.FunImage{
		Module: "demo", Name: "start", Arity: 0, NumFree: 2, Label: 1,
	})

	// x0 := 42; x1 := 'start'; y0 := x0; closure over x0,x1; return
	steps := []struct {
		op   vm.Opcode
		args []loader.FTerm
	}{
		{vm.OpLabel, []loader.FTerm{loader.Label(1)}},
		{vm.OpMove, []loader.FTerm{loader.SmallInt(42), loader.XReg(0)}},
		{vm.OpMove, []loader.FTerm{loader.LoadAtom(1), loader.XReg(1)}},
		{vm.OpMove, []loader.FTerm{loader.XReg(0), loader.YReg(0)}},
		{vm.OpMakeFun2, []loader.FTerm{loader.LoadWord(0)}},
		{vm.OpReturn, nil},
	}
	for _, s := range steps {
		if err := image.AddInstr(s.op, s.args...); err != nil {
			return nil, err
		}
	}
	return image, nil
}

// faultyModule hits a declared-but-unimplemented opcode so the crash
// path (and, when enabled, the dump store) gets exercised.
func faultyModule(atoms *vm.AtomTable) (*loader.Module, error) {
	m := loader.NewModule("faulty", atoms)
	err := m.Assemble([]loader.Instr{
		{Op: vm.OpMove, Args: []loader.FTerm{loader.SmallInt(1), loader.XReg(0)}},
		{Op: vm.OpCall, Args: []loader.FTerm{loader.SmallInt(0), loader.Label(1)}},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func report(p *vm.Process, atoms *vm.AtomTable) {
	fmt.Printf("process %d: %s", p.PID, p.Status)
	if p.Fault != nil {
		fmt.Printf(" (%s)", p.Fault.Error())
	}
	fmt.Println()

	if p.Status != vm.StatusFinished {
		return
	}
	x0 := p.X[0]
	if x0.IsBoxed() {
		fe := vm.ClosureEntry(x0)
		name, _ := atoms.ResolveTerm(fe.Name)
		fmt.Printf("  x0 = closure %s/%d with %d captured\n", name, fe.Arity, fe.NumFree)
	} else {
		fmt.Printf("  x0 = %s\n", x0)
	}
}
