package vm

import (
	"testing"
)

// loopContext builds an endless jump-to-self loop.
func loopContext() *Context {
	labels := map[uint]int{1: 0}
	return NewContext(code(opWord(OpJump), MakeLabel(1)), labels)
}

func TestRunSliceFinishes(t *testing.T) {
	s := NewScheduler(100)
	p := NewProcess(DefaultLimits())
	c := NewContext(code(
		opWord(OpMove), MakeSmall(5), MakeXReg(0),
		opWord(OpIntCodeEnd),
	), nil)

	status := s.RunSlice(p, c)
	if status != StatusFinished {
		t.Fatalf("status = %s, want finished", status)
	}
	if p.X[0].SmallValue() != 5 {
		t.Errorf("x0 = %s, want 5", p.X[0])
	}
}

// TestRunSlicePreempts verifies the reduction budget preempts a looping
// process between instructions and leaves it runnable.
func TestRunSlicePreempts(t *testing.T) {
	s := NewScheduler(10)
	p := NewProcess(DefaultLimits())

	status := s.RunSlice(p, loopContext())
	if status != StatusRunnable {
		t.Fatalf("status = %s, want runnable after preemption", status)
	}
}

// TestKillAtInstructionBoundary verifies a kill takes effect only at an
// instruction boundary, not mid-instruction.
func TestKillAtInstructionBoundary(t *testing.T) {
	s := NewScheduler(1000)
	p := NewProcess(DefaultLimits())
	p.Kill()

	status := s.RunSlice(p, loopContext())
	if status != StatusCrashed {
		t.Fatalf("status = %s, want crashed", status)
	}
	if p.Fault == nil || p.Fault.Kind != FaultKilled {
		t.Errorf("fault = %v, want killed", p.Fault)
	}
}

func TestCrashIsProcessLocal(t *testing.T) {
	s := NewScheduler(100)

	crasher := NewProcess(DefaultLimits())
	healthy := NewProcess(DefaultLimits())

	s.Spawn(crasher, NewContext(code(opWord(OpCall), MakeSmall(0), MakeLabel(1)), nil))
	s.Spawn(healthy, NewContext(code(
		opWord(OpMove), MakeSmall(1), MakeXReg(0),
		opWord(OpReturn),
	), nil))

	s.Run()

	if crasher.Status != StatusCrashed {
		t.Errorf("crasher status = %s, want crashed", crasher.Status)
	}
	if !IsFaultKind(crasher.Fault, FaultNotImplemented) {
		t.Errorf("crasher fault = %v, want not_implemented", crasher.Fault)
	}
	if healthy.Status != StatusFinished {
		t.Errorf("healthy status = %s, want finished", healthy.Status)
	}
	if healthy.X[0].SmallValue() != 1 {
		t.Errorf("healthy x0 = %s, want 1", healthy.X[0])
	}
}

type recordingSink struct {
	pids   []uint64
	faults []*Fault
}

func (r *recordingSink) RecordCrash(p *Process, c *Context, f *Fault) {
	r.pids = append(r.pids, p.PID)
	r.faults = append(r.faults, f)
}

func TestCrashRecorder(t *testing.T) {
	s := NewScheduler(100)
	sink := &recordingSink{}
	s.SetRecorder(sink)

	p := NewProcess(DefaultLimits())
	s.Spawn(p, NewContext(code(opWord(OpMove), MakeSmall(1), MakeSmall(2)), nil))
	s.Run()

	if len(sink.pids) != 1 || sink.pids[0] != p.PID {
		t.Fatalf("recorded pids = %v, want [%d]", sink.pids, p.PID)
	}
	if sink.faults[0].Kind != FaultBadTag {
		t.Errorf("recorded fault = %s, want bad_tag", sink.faults[0].Kind)
	}
}
