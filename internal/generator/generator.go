// Package generator creates processes on a tick cadence (scheduler-start)
// and on demand (screen -s / screen -c), admitting them to memory and the
// scheduler's ready queue, and retrying admission for anything memory
// could not yet afford.
package generator

import (
	"fmt"
	"log/slog"
	"math/bits"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
	"github.com/kxlabs/oscoresim/internal/scheduler"
)

// Config mirrors the config-file keys that shape generated processes:
// batch cadence, instruction count range, and memory size range.
type Config struct {
	BatchProcessFreq uint64 // ticks between automatic spawns; 0 disables
	MinInstructions  int
	MaxInstructions  int
	MinMemPerProc    int
	MaxMemPerProc    int
}

// Generator owns the batch-spawn cadence and the pending-admission retry
// queue for processes memory could not yet afford.
type Generator struct {
	cfg      Config
	registry *process.Registry
	mem      *memory.Manager
	sched    *scheduler.Scheduler
	log      *slog.Logger

	mu      sync.Mutex
	pending []*process.Process

	enabled atomic.Bool
	rng     *rand.Rand
}

// New constructs a Generator and subscribes it to clk's tick stream.
// clk is any type with OnTick(func(uint64)), taken structurally so this
// package does not need to import internal/clock.
func New(cfg Config, registry *process.Registry, mem *memory.Manager, sched *scheduler.Scheduler, clk interface{ OnTick(func(uint64)) }, log *slog.Logger) *Generator {
	g := &Generator{
		cfg:      cfg,
		registry: registry,
		mem:      mem,
		sched:    sched,
		log:      log.With("component", "generator"),
		rng:      rand.New(rand.NewPCG(1, 2)),
	}
	clk.OnTick(g.onTick)
	return g
}

// SetEnabled turns the batch cadence on ("scheduler-start") or off
// ("scheduler-stop"). Interactive creation (CreateNamed) is unaffected.
func (g *Generator) SetEnabled(on bool) {
	g.enabled.Store(on)
}

// onTick runs on the clock's own goroutine, so a panic here is guarded
// locally rather than letting it take down the clock (and every other
// listener) with it.
func (g *Generator) onTick(tick uint64) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("generator tick handler panicked, skipping tick", "tick", tick, "panic", r)
		}
	}()
	g.retryPending()
	if !g.enabled.Load() || g.cfg.BatchProcessFreq == 0 {
		return
	}
	if tick%g.cfg.BatchProcessFreq == 0 {
		g.spawnBatch(tick)
	}
}

func (g *Generator) spawnBatch(tick uint64) {
	pid := g.registry.NextPID()
	name := fmt.Sprintf("p%02d", pid)
	proc := g.build(pid, name)
	g.log.Info("batch process generated", "pid", pid, "name", name, "tick", tick)
	g.admit(proc)
}

// CreateNamed builds and admits an interactively requested process
// (screen -s / screen -c). If name is already taken it is suffixed
// name(1), name(2), ... until a free one is found.
func (g *Generator) CreateNamed(requestedName string, memoryRequired int, instructions []process.Instruction) *process.Process {
	name := g.uniqueName(requestedName)
	pid := g.registry.NextPID()
	var proc *process.Process
	if instructions != nil {
		proc = process.New(pid, name, memoryRequired, instructions)
	} else {
		proc = g.buildSized(pid, name, memoryRequired)
	}
	g.admit(proc)
	return proc
}

func (g *Generator) uniqueName(requested string) string {
	if !g.registry.NameTaken(requested) {
		return requested
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s(%d)", requested, i)
		if !g.registry.NameTaken(candidate) {
			return candidate
		}
	}
}

func (g *Generator) admit(proc *process.Process) {
	fault := g.mem.CreateProcess(proc.PID, proc.MemoryRequired)
	if fault == memory.OK {
		g.registry.Add(proc)
		g.sched.Admit(proc)
		return
	}
	if fault == memory.InsufficientMemory {
		g.log.Debug("admission deferred, queued for retry", "pid", proc.PID, "name", proc.Name)
		g.mu.Lock()
		g.pending = append(g.pending, proc)
		g.mu.Unlock()
		return
	}
	g.log.Error("admission rejected", "pid", proc.PID, "name", proc.Name, "fault", fault)
}

func (g *Generator) retryPending() {
	g.mu.Lock()
	if len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	batch := g.pending
	g.pending = nil
	g.mu.Unlock()

	for _, proc := range batch {
		g.admit(proc)
	}
}

// build generates a random process: a power-of-two memory footprint within
// [MinMemPerProc, MaxMemPerProc], a priority for the priority policies, and
// a DECLARE-biased instruction script.
func (g *Generator) build(pid int, name string) *process.Process {
	return g.buildSized(pid, name, g.randomPow2InRange(g.cfg.MinMemPerProc, g.cfg.MaxMemPerProc))
}

// buildSized is build with the memory footprint fixed by the caller, for
// screen -s's explicit <mem> argument; generated addresses stay inside it.
func (g *Generator) buildSized(pid int, name string, memoryRequired int) *process.Process {
	instructions := g.randomInstructions(g.instructionCount(), memoryRequired)
	proc := process.New(pid, name, memoryRequired, instructions)
	proc.Priority = g.rng.IntN(10)
	return proc
}

func (g *Generator) instructionCount() int {
	lo, hi := g.cfg.MinInstructions, g.cfg.MaxInstructions
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// randomPow2InRange picks a uniformly random power of two within [lo, hi].
// Both bounds are assumed to already be powers of two (validated at
// config-load time).
func (g *Generator) randomPow2InRange(lo, hi int) int {
	if lo <= 0 {
		lo = 64
	}
	if hi < lo {
		hi = lo
	}
	loExp := bits.Len(uint(lo)) - 1
	hiExp := bits.Len(uint(hi)) - 1
	exp := loExp
	if hiExp > loExp {
		exp = loExp + g.rng.IntN(hiExp-loExp+1)
	}
	return 1 << exp
}

// randomInstructions generates a script over the whole opcode set, biased
// toward declaring a variable before it is ever read, to keep generated
// programs from crashing on an undeclared-variable access by construction.
// READ/WRITE addresses stay 2-aligned within memoryRequired so they can
// never go out of bounds or straddle a frame.
func (g *Generator) randomInstructions(count, memoryRequired int) []process.Instruction {
	var declared []string
	out := make([]process.Instruction, 0, count)

	for i := 0; i < count; i++ {
		canDeclare := len(declared) < process.MaxVariables
		switch {
		case len(declared) == 0 || (canDeclare && g.rng.IntN(5) == 0):
			name := fmt.Sprintf("v%d", len(declared))
			declared = append(declared, name)
			out = append(out, process.Instruction{
				Opcode: process.OpDeclare,
				Args:   []string{name, fmt.Sprintf("%d", g.rng.IntN(100))},
			})
		case g.rng.IntN(6) == 0:
			out = append(out, process.Instruction{
				Opcode: process.OpSleep,
				Args:   []string{fmt.Sprintf("%d", 1+g.rng.IntN(5))},
			})
		case g.rng.IntN(5) == 0:
			out = append(out, process.Instruction{
				Opcode: process.OpWrite,
				Args:   []string{g.randomAddress(memoryRequired), g.pick(declared)},
			})
		case canDeclare && g.rng.IntN(5) == 0:
			name := fmt.Sprintf("v%d", len(declared))
			declared = append(declared, name)
			out = append(out, process.Instruction{
				Opcode: process.OpRead,
				Args:   []string{name, g.randomAddress(memoryRequired)},
			})
		case g.rng.IntN(8) == 0 && count-i > 2:
			body := []process.Instruction{{
				Opcode: process.OpPrint,
				Args:   []string{`"looping with: "`, g.pick(declared)},
			}}
			out = append(out, process.Instruction{
				Opcode: process.OpFor,
				Args:   []string{fmt.Sprintf("%d", 2+g.rng.IntN(3))},
				Sub:    body,
			})
		case g.rng.IntN(3) == 0:
			dest, a, b := g.pick(declared), g.pick(declared), g.pick(declared)
			op := process.OpAdd
			if g.rng.IntN(2) == 0 {
				op = process.OpSubtract
			}
			out = append(out, process.Instruction{Opcode: op, Args: []string{dest, a, b}})
		default:
			v := g.pick(declared)
			out = append(out, process.Instruction{
				Opcode: process.OpPrint,
				Args:   []string{`"Value from: "`, v},
			})
		}
	}
	return out
}

// randomAddress picks a 2-aligned hex address whose 2-byte access fits
// inside memoryRequired.
func (g *Generator) randomAddress(memoryRequired int) string {
	slots := memoryRequired / 2
	addr := g.rng.IntN(slots) * 2
	return fmt.Sprintf("0x%X", addr)
}

func (g *Generator) pick(names []string) string {
	return names[g.rng.IntN(len(names))]
}
