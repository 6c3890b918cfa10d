// Package scheduler implements the ready queue, core-busy map, scheduling
// policy and CPU worker pool.
package scheduler

import "github.com/kxlabs/oscoresim/internal/process"

// Policy is the runtime-selected scheduling variant.
type Policy string

const (
	FCFS                 Policy = "fcfs"
	SJF                  Policy = "sjf"
	SRTF                 Policy = "srtf"
	PriorityNonPreemptive Policy = "priority_np"
	PriorityPreemptive   Policy = "priority_p"
	RR                   Policy = "rr"
)

// UsesQuantum reports whether a policy enforces a fixed instruction quantum
// per turn. Only RR does.
func UsesQuantum(p Policy) bool {
	return p == RR
}

// IsPreemptive reports whether a policy can interrupt a running process
// when a strictly better candidate appears in the ready queue.
func IsPreemptive(p Policy) bool {
	return p == SRTF || p == PriorityPreemptive
}

// selectionKey returns a policy-specific comparison key for p: lower is
// better. Ties are broken by ascending pid by the caller.
func selectionKey(p *process.Process, policy Policy) int {
	switch policy {
	case SJF:
		return len(p.Instructions)
	case SRTF:
		return len(p.Instructions) - p.PC
	case PriorityNonPreemptive, PriorityPreemptive:
		return p.Priority
	default: // FCFS, RR: insertion order decides, not a key
		return 0
	}
}

// better reports whether candidate beats current under policy's ordering:
// strictly smaller key, ties broken by ascending pid.
func better(candidate, current *process.Process, policy Policy) bool {
	ck, rk := selectionKey(candidate, policy), selectionKey(current, policy)
	if ck != rk {
		return ck < rk
	}
	return candidate.PID < current.PID
}

// SelectNext removes and returns the process the policy would run next
// from ready (a snapshot of the ready queue taken under the queue lock).
// The remaining processes are returned preserving their relative order,
// as required for FCFS/RR fairness.
func SelectNext(ready []*process.Process, policy Policy) (chosen *process.Process, remaining []*process.Process) {
	if len(ready) == 0 {
		return nil, ready
	}

	switch policy {
	case FCFS, RR:
		return ready[0], ready[1:]
	default:
		bestIdx := 0
		for i := 1; i < len(ready); i++ {
			if better(ready[i], ready[bestIdx], policy) {
				bestIdx = i
			}
		}
		chosen = ready[bestIdx]
		remaining = make([]*process.Process, 0, len(ready)-1)
		remaining = append(remaining, ready[:bestIdx]...)
		remaining = append(remaining, ready[bestIdx+1:]...)
		return chosen, remaining
	}
}

// ShouldYield implements the yield decision: quantum expiry for RR,
// or a strictly-better ready candidate for preemptive policies.
func ShouldYield(policy Policy, running *process.Process, executedThisTurn, quantumCycles int, ready []*process.Process) bool {
	if UsesQuantum(policy) && executedThisTurn >= quantumCycles {
		return true
	}
	if IsPreemptive(policy) {
		runningKey := selectionKey(running, policy)
		for _, candidate := range ready {
			if selectionKey(candidate, policy) < runningKey {
				return true
			}
		}
	}
	return false
}
