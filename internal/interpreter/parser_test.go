package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxlabs/oscoresim/internal/process"
)

func TestParse_FlatProgram(t *testing.T) {
	instructions, err := Parse(`DECLARE(x, 5); ADD(y, x, 10); PRINT("result: " + y)`)
	require.NoError(t, err)
	require.Len(t, instructions, 3)

	assert.Equal(t, process.OpDeclare, instructions[0].Opcode)
	assert.Equal(t, []string{"x", "5"}, instructions[0].Args)

	assert.Equal(t, process.OpAdd, instructions[1].Opcode)
	assert.Equal(t, []string{"y", "x", "10"}, instructions[1].Args)

	assert.Equal(t, process.OpPrint, instructions[2].Opcode)
	require.Len(t, instructions[2].Args, 2)
	assert.Equal(t, `"result: "`, instructions[2].Args[0])
	assert.Equal(t, "y", instructions[2].Args[1])
}

func TestParse_PrintWithoutConcatenation(t *testing.T) {
	instructions, err := Parse(`DECLARE(v, 1); PRINT(v)`)
	require.NoError(t, err)
	require.Len(t, instructions, 2)

	assert.Equal(t, process.OpPrint, instructions[1].Opcode)
	assert.Equal(t, []string{"v"}, instructions[1].Args)
}

func TestParse_PrintWithMultipleConcatenations(t *testing.T) {
	instructions, err := Parse(`DECLARE(a, 1); DECLARE(b, 2); PRINT("a=" + a + ", b=" + b)`)
	require.NoError(t, err)
	require.Len(t, instructions, 3)

	printInstr := instructions[2]
	assert.Equal(t, process.OpPrint, printInstr.Opcode)
	assert.Equal(t, []string{`"a="`, "a", `", b="`, "b"}, printInstr.Args)
}

func TestParse_NestedFor(t *testing.T) {
	instructions, err := Parse(`DECLARE(x, 0); FOR([ADD(x, x, 1); FOR([SLEEP(1)], 2)], 3)`)
	require.NoError(t, err)
	require.Len(t, instructions, 2)

	forInstr := instructions[1]
	assert.Equal(t, process.OpFor, forInstr.Opcode)
	assert.Equal(t, []string{"3"}, forInstr.Args)
	require.Len(t, forInstr.Sub, 2)

	innerFor := forInstr.Sub[1]
	assert.Equal(t, process.OpFor, innerFor.Opcode)
	assert.Equal(t, []string{"2"}, innerFor.Args)
	require.Len(t, innerFor.Sub, 1)
	assert.Equal(t, process.OpSleep, innerFor.Sub[0].Opcode)
}

func TestParse_BareTokenForm(t *testing.T) {
	instructions, err := Parse(`DECLARE x 5; ADD y x 10; PRINT "sum is" ; SLEEP 3`)
	require.NoError(t, err)
	require.Len(t, instructions, 4)

	assert.Equal(t, process.OpDeclare, instructions[0].Opcode)
	assert.Equal(t, []string{"x", "5"}, instructions[0].Args)
	assert.Equal(t, process.OpAdd, instructions[1].Opcode)
	assert.Equal(t, []string{"y", "x", "10"}, instructions[1].Args)
	assert.Equal(t, process.OpPrint, instructions[2].Opcode)
	assert.Equal(t, []string{`"sum is"`}, instructions[2].Args)
	assert.Equal(t, process.OpSleep, instructions[3].Opcode)
	assert.Equal(t, []string{"3"}, instructions[3].Args)
}

func TestParse_BareQuotedLiteralKeepsSpaces(t *testing.T) {
	instructions, err := Parse(`PRINT "hello world"`)
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Equal(t, []string{`"hello world"`}, instructions[0].Args)
}

func TestParse_RejectsUnknownOpcode(t *testing.T) {
	_, err := Parse(`FROB(x)`)
	assert.Error(t, err)
}

func TestParse_WriteAndReadAddresses(t *testing.T) {
	instructions, err := Parse(`READ(v, 0x10); WRITE(0x20, v)`)
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	assert.Equal(t, []string{"v", "0x10"}, instructions[0].Args)
	assert.Equal(t, []string{"0x20", "v"}, instructions[1].Args)
}

func TestParseAddress_HexWithAndWithoutPrefix(t *testing.T) {
	withPrefix, err := parseAddress("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10), withPrefix)

	// Addresses are always hex, the "0x" prefix is merely optional:
	// bare "10" means 0x10 (16), not decimal 10.
	bare, err := parseAddress("10")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10), bare)
}
