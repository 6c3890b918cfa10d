package main

import (
	"fmt"

	"github.com/kxlabs/oscoresim/internal/diag"
)

// cmdProcessSMI prints the per-core, per-process view: which process is on
// which core right now, distinct from the aggregate utilization number
// report-util prints: the core-utilization-vs-queue-depth split.
func (c *console) cmdProcessSMI() {
	busy, total := c.world.Scheduler.CoreUtilization()
	faults, evictions := c.world.Memory.Counters()

	fmt.Println("--- process-smi ---")
	fmt.Printf("cores busy: %d/%d\n", busy, total)
	fmt.Printf("ready queue depth: %d\n", c.world.Scheduler.ReadyDepth())
	fmt.Printf("sleeping: %d\n", c.world.Scheduler.WaitingCount())
	fmt.Printf("frames used: %d\n", c.world.Memory.UsedFrames())
	fmt.Printf("reserved memory: %d / %d\n", c.world.Memory.ReservedMemory(), c.world.Config.MaxOverallMem)
	fmt.Printf("page faults: %d  dirty evictions: %d\n", faults, evictions)
	fmt.Printf("idle cpu ticks: %d\n", c.world.Scheduler.IdleTicks())
	fmt.Printf("host cpu load: %.1f%%\n", diag.HostLoad(c.world.Log))

	for _, p := range c.world.Registry.Snapshot() {
		if p.State.String() == "RUNNING" {
			fmt.Printf("  core %d: %s (pid=%d)\n", p.AssignedCore, p.Name, p.PID)
		}
	}
}

// cmdReportUtil prints the aggregate utilization summary, the kind of
// thing a run would tee to a file for later inspection.
func (c *console) cmdReportUtil() {
	busy, total := c.world.Scheduler.CoreUtilization()
	ready := c.world.Scheduler.ReadyDepth()
	finished, crashed := 0, 0
	for _, p := range c.world.Registry.Snapshot() {
		switch p.State.String() {
		case "FINISHED":
			finished++
		case "CRASHED":
			crashed++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(busy) / float64(total) * 100
	}
	fmt.Println("--- report-util ---")
	fmt.Printf("cpu utilization: %.1f%%\n", pct)
	fmt.Printf("processes ready: %d  finished: %d  crashed: %d\n", ready, finished, crashed)
}
