package interpreter

import (
	"strconv"
	"strings"
	"time"

	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
)

// MemoryAccess is the subset of *memory.Manager the interpreter needs.
// Kept as an interface so interpreter tests can substitute a fake without
// touching the real paging machinery.
type MemoryAccess interface {
	ReadMemory(pid int, addr uint16) (uint16, memory.Fault)
	WriteMemory(pid int, addr uint16, value uint16) memory.Fault
}

// Config tunes interpreter-level limits that are not properties of any one
// process.
type Config struct {
	MaxForDepth int
}

// DefaultMaxForDepth is used when a Config leaves MaxForDepth unset.
const DefaultMaxForDepth = 3

func (c Config) maxForDepth() int {
	if c.MaxForDepth <= 0 {
		return DefaultMaxForDepth
	}
	return c.MaxForDepth
}

// Step executes the single next instruction p's program counter (or loop
// stack, if inside a FOR) points to, against mem, and reports what
// happened. now is the clock tick at which the instruction ran.
func Step(p *process.Process, mem MemoryAccess, now uint64, cfg Config) Outcome {
	instr, ok := fetch(p)
	if !ok {
		return Finished
	}

	switch instr.Opcode {
	case process.OpPrint:
		return execPrint(p, mem, instr)
	case process.OpDeclare:
		return execDeclare(p, mem, instr)
	case process.OpAdd:
		return execArith(p, mem, instr, true)
	case process.OpSubtract:
		return execArith(p, mem, instr, false)
	case process.OpSleep:
		return execSleep(p, instr, now)
	case process.OpFor:
		return execFor(p, instr, cfg)
	case process.OpRead:
		return execRead(p, mem, instr)
	case process.OpWrite:
		return execWrite(p, mem, instr)
	default:
		p.Log("crash: unknown opcode %q", instr.Opcode)
		p.State = process.Crashed
		return Crashed
	}
}

// fetch returns the next instruction to run, descending into the
// innermost active loop context first, popping exhausted loops as it goes.
// It advances whichever position (top-level PC or a loop's sub-index) it
// reads from, so the caller never needs to.
func fetch(p *process.Process) (*process.Instruction, bool) {
	for {
		ctx := p.TopLoop()
		if ctx == nil {
			if p.PC >= len(p.Instructions) {
				return nil, false
			}
			instr := &p.Instructions[p.PC]
			p.PC++
			return instr, true
		}

		if ctx.CurrentSubIdx >= len(ctx.Sub) {
			ctx.CurrentRepeat++
			if ctx.CurrentRepeat >= ctx.RepeatCount {
				p.PopLoop()
				continue
			}
			ctx.CurrentSubIdx = 0
			continue
		}
		instr := &ctx.Sub[ctx.CurrentSubIdx]
		ctx.CurrentSubIdx++
		return instr, true
	}
}

func crash(p *process.Process, format string, args ...interface{}) Outcome {
	p.Log("crash: "+format, args...)
	p.State = process.Crashed
	return Crashed
}

func execPrint(p *process.Process, mem MemoryAccess, instr *process.Instruction) Outcome {
	var b strings.Builder
	faulted := false
	for _, tok := range instr.Args {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, "\"") && strings.HasSuffix(tok, "\"") && len(tok) >= 2 {
			b.WriteString(tok[1 : len(tok)-1])
			continue
		}
		value, outcome := readVariable(p, mem, tok)
		if outcome == Crashed {
			return crash(p, "PRINT references undeclared variable %q", tok)
		}
		b.WriteString(strconv.Itoa(int(value)))
		if outcome == PageFault {
			p.Log("print(%q) at pid=%d caused a page fault", tok, p.PID)
			faulted = true
		}
	}
	p.Log("(%s) Core:%d \"%s\"", time.Now().Format("01/02/2006 03:04:05PM"), p.AssignedCore, b.String())
	if faulted {
		return PageFault
	}
	return Advanced
}

func execDeclare(p *process.Process, mem MemoryAccess, instr *process.Instruction) Outcome {
	if len(instr.Args) != 2 {
		return crash(p, "DECLARE expects 2 args, got %d", len(instr.Args))
	}
	value, err := strconv.ParseUint(instr.Args[1], 10, 16)
	if err != nil {
		return crash(p, "DECLARE value %q is not a valid literal", instr.Args[1])
	}
	offset, ok := p.DeclareVariable(instr.Args[0])
	if !ok {
		p.Log("symbol table full, DECLARE %q ignored", instr.Args[0])
		return Advanced
	}
	fault := mem.WriteMemory(p.PID, offset, uint16(value))
	if fault.IsError() {
		return crash(p, "DECLARE %q: %s", instr.Args[0], fault)
	}
	if fault == memory.PageFault {
		return PageFault
	}
	return Advanced
}

func execArith(p *process.Process, mem MemoryAccess, instr *process.Instruction, isAdd bool) Outcome {
	if len(instr.Args) != 3 {
		return crash(p, "%s expects 3 args, got %d", instr.Opcode, len(instr.Args))
	}
	a, outcome := readOperand(p, mem, instr.Args[1])
	if outcome == Crashed {
		return crash(p, "%s references undeclared variable %q", instr.Opcode, instr.Args[1])
	}
	b, outcome2 := readOperand(p, mem, instr.Args[2])
	if outcome2 == Crashed {
		return crash(p, "%s references undeclared variable %q", instr.Opcode, instr.Args[2])
	}

	var result uint16
	if isAdd {
		sum := uint32(a) + uint32(b)
		if sum > 0xFFFF {
			sum = 0xFFFF
		}
		result = uint16(sum)
	} else {
		result = a - b // wraps mod 2^16, per Go's unsigned arithmetic
	}

	offset, ok := p.DeclareVariable(instr.Args[0])
	if !ok {
		p.Log("symbol table full, %s result %q discarded", instr.Opcode, instr.Args[0])
		return Advanced
	}
	wf := mem.WriteMemory(p.PID, offset, result)
	if wf.IsError() {
		return crash(p, "%s %q: %s", instr.Opcode, instr.Args[0], wf)
	}
	if outcome == PageFault || outcome2 == PageFault || wf == memory.PageFault {
		return PageFault
	}
	return Advanced
}

func execSleep(p *process.Process, instr *process.Instruction, now uint64) Outcome {
	if len(instr.Args) != 1 {
		return crash(p, "SLEEP expects 1 arg, got %d", len(instr.Args))
	}
	ticks, err := strconv.ParseUint(instr.Args[0], 10, 32)
	if err != nil || ticks > 255 {
		return crash(p, "SLEEP duration %q is out of the 0..255 range", instr.Args[0])
	}
	p.SleepUntilTick = now + ticks
	p.State = process.Waiting
	return Waiting
}

func execFor(p *process.Process, instr *process.Instruction, cfg Config) Outcome {
	if len(p.LoopStack) >= cfg.maxForDepth() {
		return crash(p, "FOR nesting exceeds max depth %d", cfg.maxForDepth())
	}
	if len(instr.Args) != 1 {
		return crash(p, "FOR expects a repeat count, got %d args", len(instr.Args))
	}
	count, err := strconv.Atoi(instr.Args[0])
	if err != nil {
		return crash(p, "FOR repeat count %q is not an integer", instr.Args[0])
	}
	// FOR with a non-positive count or no sub-instructions is a
	// no-op, not an error; the process simply advances past it.
	if count <= 0 || len(instr.Sub) == 0 {
		return Advanced
	}
	p.PushLoop(process.LoopContext{
		Sub:         instr.Sub,
		RepeatCount: count,
	})
	return Advanced
}

func execRead(p *process.Process, mem MemoryAccess, instr *process.Instruction) Outcome {
	if len(instr.Args) != 2 {
		return crash(p, "READ expects 2 args, got %d", len(instr.Args))
	}
	addr, err := parseAddress(instr.Args[1])
	if err != nil {
		return crash(p, "READ address %q: %v", instr.Args[1], err)
	}
	value, fault := mem.ReadMemory(p.PID, addr)
	if fault.IsError() {
		p.FaultingAddress = &addr
		return crash(p, "READ %s: %s", instr.Args[1], fault)
	}
	offset, ok := p.DeclareVariable(instr.Args[0])
	if !ok {
		p.Log("symbol table full, READ into %q discarded", instr.Args[0])
		return Advanced
	}
	wf := mem.WriteMemory(p.PID, offset, value)
	if wf.IsError() {
		return crash(p, "READ %q: %s", instr.Args[0], wf)
	}
	if fault == memory.PageFault || wf == memory.PageFault {
		return PageFault
	}
	return Advanced
}

func execWrite(p *process.Process, mem MemoryAccess, instr *process.Instruction) Outcome {
	if len(instr.Args) != 2 {
		return crash(p, "WRITE expects 2 args, got %d", len(instr.Args))
	}
	addr, err := parseAddress(instr.Args[0])
	if err != nil {
		return crash(p, "WRITE address %q: %v", instr.Args[0], err)
	}
	value, rf := readOperand(p, mem, instr.Args[1])
	if rf == Crashed {
		return crash(p, "WRITE references undeclared variable %q", instr.Args[1])
	}
	wf := mem.WriteMemory(p.PID, addr, value)
	if wf.IsError() {
		p.FaultingAddress = &addr
		return crash(p, "WRITE to %s: %s", instr.Args[0], wf)
	}
	if rf == PageFault || wf == memory.PageFault {
		return PageFault
	}
	return Advanced
}

// readVariable resolves a PRINT token that is not a quoted literal: it must
// be a declared variable.
func readVariable(p *process.Process, mem MemoryAccess, name string) (uint16, Outcome) {
	offset, ok := p.LookupVariable(name)
	if !ok {
		return 0, Crashed
	}
	value, fault := mem.ReadMemory(p.PID, offset)
	if fault.IsError() && fault != memory.PageFault {
		return 0, Crashed
	}
	if fault == memory.PageFault {
		return value, PageFault
	}
	return value, Advanced
}

// readOperand resolves an ADD/SUBTRACT operand, which is either a declared
// variable or a decimal literal.
func readOperand(p *process.Process, mem MemoryAccess, token string) (uint16, Outcome) {
	if literal, err := strconv.ParseUint(token, 10, 16); err == nil {
		return uint16(literal), Advanced
	}
	return readVariable(p, mem, token)
}

// parseAddress parses a READ/WRITE address as hexadecimal: the
// "0x" prefix is optional, but the digits are always hex even without it.
func parseAddress(token string) (uint16, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "0x")
	token = strings.TrimPrefix(token, "0X")
	value, err := strconv.ParseUint(token, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(value), nil
}
