package vm

// ---------------------------------------------------------------------------
// Scheduler: cooperative round-robin with reduction counting
// ---------------------------------------------------------------------------

// CrashRecorder receives fault reports for crashed processes. The
// scheduler calls it after marking the process crashed; implementations
// must not assume they run on any particular goroutine.
type CrashRecorder interface {
	RecordCrash(p *Process, c *Context, f *Fault)
}

// task pairs a process with its decoding context.
type task struct {
	proc *Process
	ctx  *Context
}

// Scheduler multiplexes processes onto the calling goroutine. A process
// runs for a reduction budget's worth of instructions, then the next one
// gets a turn. Preemption and kill signals take effect only between
// instructions, never inside an instruction's fetch/store sequence.
type Scheduler struct {
	reductions int
	queue      []task
	recorder   CrashRecorder
}

// NewScheduler creates a scheduler granting each process budget
// instructions per slice.
func NewScheduler(budget int) *Scheduler {
	if budget <= 0 {
		budget = 2000
	}
	return &Scheduler{reductions: budget}
}

// SetRecorder installs a crash report sink.
func (s *Scheduler) SetRecorder(r CrashRecorder) {
	s.recorder = r
}

// Spawn queues a runnable process over the given context.
func (s *Scheduler) Spawn(p *Process, c *Context) {
	p.Status = StatusRunnable
	s.queue = append(s.queue, task{proc: p, ctx: c})
	log.Infof("spawned process %d (%d code words)", p.PID, len(c.code))
}

// RunSlice executes up to the reduction budget for one process. The
// returned status is the process status after the slice.
func (s *Scheduler) RunSlice(p *Process, c *Context) ProcessStatus {
	p.Status = StatusRunning

	for i := 0; i < s.reductions; i++ {
		// Instruction boundary: the only place external cancellation
		// is allowed to take effect.
		if p.Killed() {
			s.crash(p, c, newFault(FaultKilled, "killed at offset %d", c.IP()))
			return p.Status
		}

		result, err := Step(c, p)
		if err != nil {
			fault, ok := AsFault(err)
			if !ok {
				fault = newFault(FaultBadTag, "unclassified dispatch error: %v", err)
			}
			s.crash(p, c, fault)
			return p.Status
		}

		switch result {
		case DispatchFinished:
			p.Status = StatusFinished
			return p.Status
		case DispatchNormal, DispatchControl:
			// keep going
		}
	}

	p.Status = StatusRunnable
	return p.Status
}

// Run drives all queued processes round-robin until every one has
// finished or crashed. A crashed process never takes the runtime down;
// the rest keep running.
func (s *Scheduler) Run() {
	for {
		ran := false
		for _, t := range s.queue {
			if t.proc.Status != StatusRunnable {
				continue
			}
			ran = true
			s.RunSlice(t.proc, t.ctx)
		}
		if !ran {
			return
		}
	}
}

func (s *Scheduler) crash(p *Process, c *Context, f *Fault) {
	p.Crash(f)
	if s.recorder != nil {
		s.recorder.RecordCrash(p, c, f)
	}
}
