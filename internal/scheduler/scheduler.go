package scheduler

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kxlabs/oscoresim/internal/clock"
	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
)

// Scheduler owns the ready queue and the fixed pool of CPU workers. It is
// started once (at "initialize") and stopped once; processes are fed in via
// Admit and observed via CoreUtilization, ReadyDepth and WaitingCount.
type Scheduler struct {
	queue   *Queue
	workers []*Worker
	wg      sync.WaitGroup
	log     *slog.Logger

	idleTicks atomic.Uint64
}

// New builds a Scheduler with numCores workers, all idle until Start.
func New(numCores int, mem *memory.Manager, clk *clock.Clock, cfg WorkerConfig, log *slog.Logger) *Scheduler {
	queue := NewQueue(numCores, cfg.Policy)
	s := &Scheduler{
		queue: queue,
		log:   log.With("component", "scheduler"),
	}
	for i := 0; i < numCores; i++ {
		s.workers = append(s.workers, NewWorker(i, queue, mem, clk, cfg, log))
	}
	clk.OnTick(queue.WakeDue)
	clk.OnTick(func(uint64) { s.countIdleTick() })
	return s
}

// countIdleTick records a tick where no core was running a process, the way
// the original's showVMStat tracks idle-CPU ticks alongside fault/eviction
// counters.
func (s *Scheduler) countIdleTick() {
	busy, _ := s.CoreUtilization()
	if busy == 0 {
		s.idleTicks.Add(1)
	}
}

// IdleTicks reports how many clock ticks have elapsed with every core idle.
func (s *Scheduler) IdleTicks() uint64 {
	return s.idleTicks.Load()
}

// Start launches one goroutine per core.
func (s *Scheduler) Start() {
	s.log.Info("scheduler starting", "cores", len(s.workers))
	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *Worker) {
			defer s.wg.Done()
			w.Run()
		}(w)
	}
}

// Stop signals every worker to exit once it finishes its current turn, and
// waits for them all to do so.
func (s *Scheduler) Stop() {
	s.queue.Stop()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Admit places a newly created process on the ready queue.
func (s *Scheduler) Admit(p *process.Process) {
	s.queue.Enqueue(p)
}

// CoreUtilization reports how many of the core slots are currently busy, out
// of the total, for process-smi / report-util.
func (s *Scheduler) CoreUtilization() (busy, total int) {
	_, coreBusy := s.queue.Snapshot()
	for _, b := range coreBusy {
		if b {
			busy++
		}
	}
	return busy, len(coreBusy)
}

// ReadyDepth reports how many processes are currently waiting for a core,
// as opposed to running on one; distinct from CoreUtilization per the
// utilization-vs-queue-depth split.
func (s *Scheduler) ReadyDepth() int {
	ready, _ := s.queue.Snapshot()
	return len(ready)
}

// WaitingCount reports how many processes are parked in SLEEP.
func (s *Scheduler) WaitingCount() int {
	return s.queue.WaitingCount()
}
