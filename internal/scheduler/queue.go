package scheduler

import (
	"sync"

	"github.com/kxlabs/oscoresim/internal/process"
)

// Queue is the single mutex+condvar guarded ready queue and core-busy map
// for the worker pool: one lock serializes every enqueue/dequeue/core-claim
// across all CPU workers, and a condvar lets idle workers block instead of
// spinning.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	ready    []*process.Process
	coreBusy []bool

	waiting []*process.Process // SLEEP'd processes, woken by tick
	policy  Policy

	stopped bool
}

// NewQueue creates a queue with numCores core slots, all initially idle.
func NewQueue(numCores int, policy Policy) *Queue {
	q := &Queue{
		coreBusy: make([]bool, numCores),
		policy:   policy,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends p to the ready queue and wakes one blocked worker.
func (q *Queue) Enqueue(p *process.Process) {
	q.mu.Lock()
	p.State = process.Ready
	p.AssignedCore = -1
	q.ready = append(q.ready, p)
	q.cond.Signal()
	q.mu.Unlock()
}

// Park moves p to the sleeping set until its SleepUntilTick, instead of the
// ready queue.
func (q *Queue) Park(p *process.Process) {
	q.mu.Lock()
	q.waiting = append(q.waiting, p)
	q.mu.Unlock()
}

// WakeDue moves every parked process whose SleepUntilTick has passed back
// onto the ready queue. Called once per tick by the clock's subscriber.
func (q *Queue) WakeDue(now uint64) {
	q.mu.Lock()
	var stillWaiting []*process.Process
	var woken []*process.Process
	for _, p := range q.waiting {
		if now >= p.SleepUntilTick {
			woken = append(woken, p)
		} else {
			stillWaiting = append(stillWaiting, p)
		}
	}
	q.waiting = stillWaiting
	for _, p := range woken {
		p.State = process.Ready
		p.AssignedCore = -1
		q.ready = append(q.ready, p)
	}
	if len(woken) > 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// Dequeue blocks until a process is ready to run on core, or the queue has
// been stopped, in which case stop is true.
func (q *Queue) Dequeue(core int) (next *process.Process, stop bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ready) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, true
	}

	chosen, rest := SelectNext(q.ready, q.policy)
	q.ready = rest
	q.coreBusy[core] = true
	chosen.State = process.Running
	chosen.AssignedCore = core
	return chosen, false
}

// Release marks core idle again.
func (q *Queue) Release(core int) {
	q.mu.Lock()
	q.coreBusy[core] = false
	q.mu.Unlock()
}

// PeekReady returns a snapshot of the ready queue without removing
// anything, for a preemptive policy's yield decision.
func (q *Queue) PeekReady() []*process.Process {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*process.Process, len(q.ready))
	copy(out, q.ready)
	return out
}

// Requeue puts a preempted or quantum-expired process back on the ready
// queue, at the tail.
func (q *Queue) Requeue(p *process.Process) {
	q.Enqueue(p)
}

// Stop wakes every blocked worker so it can observe shutdown.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Snapshot returns the current ready-queue contents and per-core busy flags,
// for diagnostics (process-smi, report-util).
func (q *Queue) Snapshot() (ready []*process.Process, coreBusy []bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ready = append(ready, q.ready...)
	coreBusy = append(coreBusy, q.coreBusy...)
	return
}

// WaitingCount reports how many processes are parked asleep, for
// diagnostics.
func (q *Queue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
