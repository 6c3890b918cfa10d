// Package process holds the process record: identity, script, execution
// state and the per-process symbol table. A Process owns no synchronization
// of its own; callers follow the locking convention of the owning registry
// (see Registry).
package process

import (
	"fmt"
)

// Opcode names the small instruction set the interpreter understands.
type Opcode string

const (
	OpPrint    Opcode = "PRINT"
	OpDeclare  Opcode = "DECLARE"
	OpAdd      Opcode = "ADD"
	OpSubtract Opcode = "SUBTRACT"
	OpSleep    Opcode = "SLEEP"
	OpFor      Opcode = "FOR"
	OpRead     Opcode = "READ"
	OpWrite    Opcode = "WRITE"
)

// Instruction is one step of a process's script. Only FOR populates Sub.
type Instruction struct {
	Opcode Opcode
	Args   []string
	Sub    []Instruction
}

// LoopContext captures one active FOR on the loop-context stack.
type LoopContext struct {
	Sub            []Instruction
	RepeatCount    int
	CurrentRepeat  int
	CurrentSubIdx  int
}

// State is one of the five execution states a Process can be in.
type State int

const (
	Ready State = iota
	Running
	Waiting
	Finished
	Crashed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Waiting:
		return "WAITING"
	case Finished:
		return "FINISHED"
	case Crashed:
		return "CRASHED"
	default:
		return "UNKNOWN"
	}
}

// SymbolTableBytes is the byte budget for a process's variables:
// MaxVariables (32) slots of 2 bytes each.
const (
	MaxVariables     = 32
	SymbolTableBytes = MaxVariables * 2
)

// Process is the PCB: identity, script, symbol table and diagnostics.
type Process struct {
	PID  int
	Name string

	Instructions []Instruction
	PC           int
	LoopStack    []LoopContext

	AssignedCore int // -1 when not running
	LastCore     int

	State State

	MemoryRequired  int
	VarOffsets      map[string]uint16
	NextFreeOffset  uint16

	Logs            []string
	StartTick       uint64
	EndTick         uint64
	HasStartTick    bool
	HasEndTick      bool
	FaultingAddress *uint16
	SleepUntilTick  uint64
	Priority        int
}

// New creates a Process in READY state with an empty symbol table.
func New(pid int, name string, memoryRequired int, instructions []Instruction) *Process {
	return &Process{
		PID:            pid,
		Name:           name,
		Instructions:   instructions,
		AssignedCore:   -1,
		LastCore:       -1,
		State:          Ready,
		MemoryRequired: memoryRequired,
		VarOffsets:     make(map[string]uint16),
	}
}

// Finished reports whether the process has reached a terminal state.
func (p *Process) Finished() bool {
	return p.State == Finished || p.State == Crashed
}

// DeclareVariable allocates (or looks up) a 2-byte variable slot. Beyond
// MaxVariables the declaration is a silent no-op (logged by the caller) per
// the symbol-table-full rule.
func (p *Process) DeclareVariable(name string) (offset uint16, ok bool) {
	if off, exists := p.VarOffsets[name]; exists {
		return off, true
	}
	if len(p.VarOffsets) >= MaxVariables {
		return 0, false
	}
	offset = p.NextFreeOffset
	p.VarOffsets[name] = offset
	p.NextFreeOffset += 2
	return offset, true
}

// LookupVariable returns the offset of an already-declared variable.
func (p *Process) LookupVariable(name string) (offset uint16, ok bool) {
	offset, ok = p.VarOffsets[name]
	return
}

// Log appends one formatted log line, recording state transitions and
// syscalls in a process's own log.
func (p *Process) Log(format string, args ...interface{}) {
	p.Logs = append(p.Logs, fmt.Sprintf(format, args...))
}

// PushLoop pushes a new loop context for an entered FOR.
func (p *Process) PushLoop(ctx LoopContext) {
	p.LoopStack = append(p.LoopStack, ctx)
}

// TopLoop returns a pointer to the active loop context, if any.
func (p *Process) TopLoop() *LoopContext {
	if len(p.LoopStack) == 0 {
		return nil
	}
	return &p.LoopStack[len(p.LoopStack)-1]
}

// PopLoop discards the active loop context.
func (p *Process) PopLoop() {
	if len(p.LoopStack) == 0 {
		return
	}
	p.LoopStack = p.LoopStack[:len(p.LoopStack)-1]
}
