package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareVariable_CapAtThirtyTwo(t *testing.T) {
	p := New(1, "p1", 4096, nil)

	for i := 0; i < MaxVariables; i++ {
		name := "v" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		offset, ok := p.DeclareVariable(name)
		require.True(t, ok, "declaration %d should succeed", i)
		assert.Equal(t, uint16(i*2), offset)
	}

	_, ok := p.DeclareVariable("overflow")
	assert.False(t, ok, "33rd distinct variable should be rejected")
}

func TestDeclareVariable_RedeclaringReturnsSameOffset(t *testing.T) {
	p := New(1, "p1", 4096, nil)

	first, ok := p.DeclareVariable("x")
	require.True(t, ok)

	second, ok := p.DeclareVariable("x")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestLookupVariable_UnknownFails(t *testing.T) {
	p := New(1, "p1", 4096, nil)
	_, ok := p.LookupVariable("nope")
	assert.False(t, ok)
}

func TestLoopStack_PushTopPop(t *testing.T) {
	p := New(1, "p1", 4096, nil)
	assert.Nil(t, p.TopLoop())

	p.PushLoop(LoopContext{RepeatCount: 3})
	require.NotNil(t, p.TopLoop())
	assert.Equal(t, 3, p.TopLoop().RepeatCount)

	p.PopLoop()
	assert.Nil(t, p.TopLoop())

	p.PopLoop() // popping empty stack is a no-op, not a panic
	assert.Nil(t, p.TopLoop())
}

func TestFinished(t *testing.T) {
	p := New(1, "p1", 4096, nil)
	assert.False(t, p.Finished())

	p.State = Waiting
	assert.False(t, p.Finished())

	p.State = Finished
	assert.True(t, p.Finished())

	p.State = Crashed
	assert.True(t, p.Finished())
}
