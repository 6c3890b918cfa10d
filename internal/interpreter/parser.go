package interpreter

import (
	"fmt"
	"strings"

	"github.com/kxlabs/oscoresim/internal/process"
)

// Parse turns one raw instruction-list string (as typed into screen -c)
// into a flat instruction slice.
// screen -c takes ";"-separated instructions; FOR's bracketed sub-lists
// use the same separator. Semicolons inside an instruction's own
// parentheses or inside a quoted PRINT literal do not split.
func Parse(src string) ([]process.Instruction, error) {
	return parseList(src)
}

func parseList(src string) ([]process.Instruction, error) {
	tokens := splitTopLevel(strings.TrimSpace(src), ';')
	out := make([]process.Instruction, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		instr, err := parseOne(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}

func parseOne(tok string) (process.Instruction, error) {
	open := strings.IndexByte(tok, '(')
	if open == -1 {
		return parseBare(tok)
	}
	if tok[len(tok)-1] != ')' {
		return process.Instruction{}, fmt.Errorf("malformed instruction %q: expected OPCODE(args)", tok)
	}
	name := strings.ToUpper(strings.TrimSpace(tok[:open]))
	args := tok[open+1 : len(tok)-1]

	op := process.Opcode(name)
	switch op {
	case process.OpPrint:
		return process.Instruction{Opcode: op, Args: trimAll(splitTopLevel(args, '+'))}, nil
	case process.OpDeclare, process.OpAdd, process.OpSubtract, process.OpRead, process.OpWrite:
		return process.Instruction{Opcode: op, Args: trimAll(splitTopLevel(args, ','))}, nil
	case process.OpSleep:
		return process.Instruction{Opcode: op, Args: trimAll(splitTopLevel(args, ','))}, nil
	case process.OpFor:
		return parseFor(args)
	default:
		return process.Instruction{}, fmt.Errorf("unknown opcode %q", name)
	}
}

// parseBare handles the unparenthesised grammar, where an instruction is
// just whitespace-separated tokens: DECLARE x 5, PRINT v, SLEEP 10. A
// quoted PRINT literal stays one token even if it contains spaces. FOR has
// no bare form (its sub-list needs brackets), so a bare FOR parses to an
// empty body, which executes as a no-op.
func parseBare(tok string) (process.Instruction, error) {
	fields := splitBareFields(tok)
	if len(fields) == 0 {
		return process.Instruction{}, fmt.Errorf("empty instruction")
	}
	op := process.Opcode(strings.ToUpper(fields[0]))
	switch op {
	case process.OpPrint, process.OpDeclare, process.OpAdd, process.OpSubtract,
		process.OpSleep, process.OpFor, process.OpRead, process.OpWrite:
		return process.Instruction{Opcode: op, Args: fields[1:]}, nil
	default:
		return process.Instruction{}, fmt.Errorf("unknown opcode %q", fields[0])
	}
}

// splitBareFields splits on whitespace, keeping a double-quoted span
// together as one field.
func splitBareFields(s string) []string {
	var out []string
	var b strings.Builder
	inQuotes := false
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			b.WriteByte(c)
		case (c == ' ' || c == '\t') && !inQuotes:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

// parseFor handles FOR([sub1, sub2, ...], repeatCount). The bracketed list
// and the trailing repeat count are the two top-level comma-separated
// pieces of args once the bracket's inner commas are shielded from the
// split, so we locate the matching bracket explicitly instead.
func parseFor(args string) (process.Instruction, error) {
	args = strings.TrimSpace(args)
	if len(args) == 0 || args[0] != '[' {
		return process.Instruction{}, fmt.Errorf("malformed FOR args %q: expected [INSTRUCTIONS], count", args)
	}
	depth := 0
	closeIdx := -1
	for i, r := range args {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx != -1 {
			break
		}
	}
	if closeIdx == -1 {
		return process.Instruction{}, fmt.Errorf("malformed FOR args %q: unbalanced brackets", args)
	}
	inner := args[1:closeIdx]
	rest := strings.TrimSpace(args[closeIdx+1:])
	rest = strings.TrimPrefix(rest, ",")
	rest = strings.TrimSpace(rest)

	sub, err := parseList(inner)
	if err != nil {
		return process.Instruction{}, fmt.Errorf("parsing FOR body: %w", err)
	}
	return process.Instruction{Opcode: process.OpFor, Args: []string{rest}, Sub: sub}, nil
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// splitTopLevel splits s on sep, ignoring sep when it appears inside
// parentheses, brackets or a double-quoted string.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
			// ignore structural characters inside a quoted literal
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
