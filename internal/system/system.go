// Package system wires together every other internal package into the
// single running instance of the simulator: the one "World" value, rather
// than a scatter of process-wide singletons.
package system

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/kxlabs/oscoresim/internal/clock"
	"github.com/kxlabs/oscoresim/internal/config"
	"github.com/kxlabs/oscoresim/internal/diag"
	"github.com/kxlabs/oscoresim/internal/generator"
	"github.com/kxlabs/oscoresim/internal/interpreter"
	"github.com/kxlabs/oscoresim/internal/logging"
	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
	"github.com/kxlabs/oscoresim/internal/scheduler"
)

const backingStorePath = "csopesy-backing-store.txt"
const snapshotDir = "snapshots"

// World holds every live component of one simulator run.
type World struct {
	Config *config.Config
	Log    *slog.Logger

	Clock      *clock.Clock
	Registry   *process.Registry
	Backing    memory.BackingStore
	Memory     *memory.Manager
	Scheduler  *scheduler.Scheduler
	Generator  *generator.Generator
	Snapshots  *memory.SnapshotWriter

	shutdownOnce sync.Once
}

// Bootstrap builds a World from the config file at cfgPath and starts its
// clock and CPU workers, so interactively created processes can run before
// batch generation is ever enabled. It backs the "initialize" command.
func Bootstrap(cfgPath string) (*World, error) {
	log := logging.New("info", "oscoresim")
	cfg := config.Load(cfgPath, log)
	diag.WarnIfOversubscribed(cfg.NumCPU, log)

	clk := clock.New(log)
	registry := process.NewRegistry()

	backing, err := memory.OpenFileBackingStore(backingStorePath, cfg.MemPerFrame, maxPagesPerProcess(*cfg))
	if err != nil {
		return nil, fmt.Errorf("opening backing store: %w", err)
	}

	mem := memory.New(memory.Config{
		TotalMemory:        cfg.MaxOverallMem,
		FrameSize:          cfg.MemPerFrame,
		MaxPagesPerProcess: maxPagesPerProcess(*cfg),
	}, clk, backing, log)

	sched := scheduler.New(cfg.NumCPU, mem, clk, scheduler.WorkerConfig{
		Policy:             scheduler.Policy(cfg.Scheduler),
		QuantumCycles:      cfg.QuantumCycles,
		DelayPerExec:       cfg.DelayPerExec,
		MaxForDepth:        interpreter.DefaultMaxForDepth,
		AvgInstructionSize: scheduler.DefaultAvgInstructionSize,
	}, log)

	gen := generator.New(generator.Config{
		BatchProcessFreq: cfg.BatchProcessFreq,
		MinInstructions:  cfg.MinInstructions,
		MaxInstructions:  cfg.MaxInstructions,
		MinMemPerProc:    cfg.MinMemPerProc,
		MaxMemPerProc:    cfg.MaxMemPerProc,
	}, registry, mem, sched, clk, log)

	snapshots := memory.NewSnapshotWriter(snapshotDir, log)
	clk.OnTick(func(tick uint64) {
		if tick%memory.SnapshotInterval == 0 {
			snapshots.Capture(mem, tick)
		}
	})

	w := &World{
		Config:    cfg,
		Log:       log,
		Clock:     clk,
		Registry:  registry,
		Backing:   backing,
		Memory:    mem,
		Scheduler: sched,
		Generator: gen,
		Snapshots: snapshots,
	}
	go w.Clock.Run()
	w.Scheduler.Start()
	return w, nil
}

func maxPagesPerProcess(cfg config.Config) int {
	return cfg.MaxMemPerProc / cfg.MemPerFrame
}

// Start enables batch process generation. The clock and workers are already
// running since Bootstrap. Backs the "scheduler-start" command.
func (w *World) Start() {
	w.Generator.SetEnabled(true)
	w.Log.Info("batch process generation enabled")
}

// StopGenerating disables batch process creation without tearing the
// system down. Backs the "scheduler-stop" command.
func (w *World) StopGenerating() {
	w.Generator.SetEnabled(false)
	w.Log.Info("scheduler stopped accepting new batch processes")
}

// Shutdown tears the whole system down in dependency order: stop admitting
// new work, drain the workers, drain any in-flight snapshot writes, then
// close the backing store. Only the first call does anything. The console
// calls it from its teardown on exit.
func (w *World) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.Generator.SetEnabled(false)
		w.Scheduler.Stop()
		w.Clock.Stop()
		w.Snapshots.Drain()
		if err := w.Backing.Close(); err != nil {
			w.Log.Error("closing backing store failed", "error", err)
		}
		w.Log.Info("shutdown complete")
	})
}

// RegisterShutdown hooks Shutdown into atexit, so an exit through
// atexit.Exit or atexit.Fatal runs it. A plain return from main or an
// os.Exit does not run atexit handlers.
func (w *World) RegisterShutdown() {
	atexit.Register(w.Shutdown)
}

// BootstrapProcess creates a single process directly from a name and a raw
// instruction-list program string, bypassing the generator's random script
// synthesis. Maps screen -c.
func (w *World) BootstrapProcess(name string, memoryRequired int, program string) (*process.Process, error) {
	instructions, err := interpreter.Parse(program)
	if err != nil {
		return nil, fmt.Errorf("parsing program for %q: %w", name, err)
	}
	return w.Generator.CreateNamed(name, memoryRequired, instructions), nil
}
