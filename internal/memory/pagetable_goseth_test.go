package memory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syifan/goseth"
)

// dumpPageTable renders pt for a test failure message, so a mismatched page
// table/frame structure shows its full shape instead of a bare "not equal".
func dumpPageTable(t *testing.T, pt PageTable) string {
	t.Helper()
	var buf bytes.Buffer
	serializer := goseth.NewSerializer()
	serializer.SetRoot(pt)
	require.NoError(t, serializer.Serialize(&buf))
	return buf.String()
}

func TestPageTableSnapshot_ReflectsFaultInAndSurvivesOtherProcessRemoval(t *testing.T) {
	mgr, _ := newTestManager(128, 64) // 2 frames
	require.Equal(t, OK, mgr.CreateProcess(1, 64))
	require.Equal(t, OK, mgr.CreateProcess(2, 64))

	require.Equal(t, PageFault, mgr.WriteMemory(1, 0, 111))
	before, ok := mgr.PageTableSnapshot(1)
	require.True(t, ok)
	require.Len(t, before.Entries, 1)
	require.True(t, before.Entries[0].Valid, "expected resident page after fault-in:\n%s", dumpPageTable(t, before))
	require.True(t, before.Entries[0].Dirty, "expected dirty page after write:\n%s", dumpPageTable(t, before))

	require.Equal(t, PageFault, mgr.WriteMemory(2, 0, 222))
	mgr.RemoveProcess(2)

	after, ok := mgr.PageTableSnapshot(1)
	require.True(t, ok)
	require.Equal(t, before.Entries[0].FrameIndex, after.Entries[0].FrameIndex,
		"pid 1's frame should be unaffected by pid 2's lifecycle:\nbefore:\n%s\nafter:\n%s",
		dumpPageTable(t, before), dumpPageTable(t, after))
}
