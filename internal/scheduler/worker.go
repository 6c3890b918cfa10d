package scheduler

import (
	"log/slog"

	"github.com/kxlabs/oscoresim/internal/clock"
	"github.com/kxlabs/oscoresim/internal/interpreter"
	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
)

// WorkerConfig carries the per-run tunables a CPU worker needs that are not
// properties of the queue itself.
type WorkerConfig struct {
	Policy             Policy
	QuantumCycles      int
	DelayPerExec       int
	MaxForDepth        int
	AvgInstructionSize int // bytes per instruction when synthesizing fetch addresses
}

// DefaultAvgInstructionSize is used when a WorkerConfig leaves
// AvgInstructionSize unset.
const DefaultAvgInstructionSize = 8

func (c WorkerConfig) avgInstructionSize() int {
	if c.AvgInstructionSize <= 0 {
		return DefaultAvgInstructionSize
	}
	return c.AvgInstructionSize
}

// Worker is one of num-cpu CPU cores. It pulls a process off the ready
// queue, runs it for a turn (bounded by quantum expiry or preemption, for
// the policies that have those), and either finalizes it or requeues it.
type Worker struct {
	core  int
	queue *Queue
	mem   *memory.Manager
	clk   *clock.Clock
	cfg   WorkerConfig
	log   *slog.Logger
}

// NewWorker constructs a worker bound to a fixed core index.
func NewWorker(core int, queue *Queue, mem *memory.Manager, clk *clock.Clock, cfg WorkerConfig, log *slog.Logger) *Worker {
	return &Worker{
		core:  core,
		queue: queue,
		mem:   mem,
		clk:   clk,
		cfg:   cfg,
		log:   log.With("component", "cpu_worker", "core", core),
	}
}

// Run services the queue until it is stopped. Intended to be launched in
// its own goroutine, one per core.
func (w *Worker) Run() {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker goroutine panicked, exiting", "panic", r)
		}
	}()
	for {
		proc, stop := w.queue.Dequeue(w.core)
		if stop {
			w.log.Info("worker stopping")
			return
		}
		w.runTurn(proc)
	}
}

// runTurn executes proc until it yields (quantum expiry, preemption,
// SLEEP), finishes, crashes, or faults a page.
func (w *Worker) runTurn(proc *process.Process) {
	if !proc.HasStartTick {
		proc.StartTick = w.clk.Now()
		proc.HasStartTick = true
	}
	proc.LastCore = w.core
	executed := 0
	icfg := interpreter.Config{MaxForDepth: w.cfg.MaxForDepth}

	for {
		now := w.clk.Now()
		if w.touchInstructionPage(proc) {
			proc.SleepUntilTick = now + 1
			proc.State = process.Waiting
			break
		}

		outcome := interpreter.Step(proc, w.mem, now, icfg)
		executed++

		switch outcome {
		case interpreter.Finished:
			proc.State = process.Finished
		case interpreter.Crashed:
			// proc.State already set to Crashed by the interpreter.
		case interpreter.Waiting:
			// proc.State already set to Waiting by the interpreter.
		case interpreter.PageFault:
			// The access completed, but it cost a fault-in; charge the
			// process one turn of simulated I/O latency, same as an
			// instruction-fetch fault.
			proc.SleepUntilTick = now + 1
			proc.State = process.Waiting
		}

		if proc.Finished() || proc.State == process.Waiting {
			break
		}

		if w.cfg.DelayPerExec > 0 {
			w.log.Debug("applying delay-per-exec", "pid", proc.PID, "ticks", w.cfg.DelayPerExec)
			w.clk.SleepTicks(w.cfg.DelayPerExec)
		}

		ready := w.queue.PeekReady()
		if ShouldYield(w.cfg.Policy, proc, executed, w.cfg.QuantumCycles, ready) {
			break
		}
	}

	w.finalize(proc)
}

// touchInstructionPage reserves the page a process's next fetch would land
// on, before the instruction executes. Instruction addresses are modelled as
// PC*AvgInstructionSize; an address past the process's declared memory is
// not a real fault here (the instruction stream isn't actually backed by
// this address space) so it is treated as a no-op rather than a crash.
func (w *Worker) touchInstructionPage(proc *process.Process) (faulted bool) {
	addr := proc.PC * w.cfg.avgInstructionSize()
	if addr > 0xFFFF {
		return false
	}
	faulted, fault := w.mem.TouchPage(proc.PID, uint16(addr))
	if fault.IsError() {
		return false
	}
	return faulted
}

func (w *Worker) finalize(proc *process.Process) {
	w.queue.Release(w.core)
	proc.AssignedCore = -1

	switch {
	case proc.State == process.Finished:
		proc.EndTick = w.clk.Now()
		proc.HasEndTick = true
		w.mem.RemoveProcess(proc.PID)
		w.log.Info("process finished", "pid", proc.PID, "name", proc.Name)
	case proc.State == process.Crashed:
		proc.EndTick = w.clk.Now()
		proc.HasEndTick = true
		w.mem.RemoveProcess(proc.PID)
		w.log.Info("process crashed", "pid", proc.PID, "name", proc.Name)
	case proc.State == process.Waiting:
		w.queue.Park(proc)
	default:
		w.queue.Requeue(proc)
	}
}
