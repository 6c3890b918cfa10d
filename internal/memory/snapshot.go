package memory

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Snapshot builds a complete textual description of memory manager state
// at the given tick: frame occupancy, counters, and every process's page
// table. The manager lock is held only while building the string; callers
// get a stable point-in-time view before handing it to an async writer.
func (m *Manager) Snapshot(tick uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "=== MEMORY SNAPSHOT tick=%d ===\n", tick)
	fmt.Fprintf(&b, "frames_used=%d frames_free=%d page_faults=%d dirty_evictions=%d\n",
		m.cfg.totalFrames()-m.frames.freeFrames(), m.frames.freeFrames(), m.pageFaults, m.dirtyEvictions)

	fmt.Fprintln(&b, "--- frames ---")
	for f := 0; f < m.cfg.totalFrames(); f++ {
		if m.frames.occupied[f] {
			occ := m.frames.frameToPage[f]
			fmt.Fprintf(&b, "frame %d: pid=%d page=%d\n", f, occ.pid, occ.page)
		} else {
			fmt.Fprintf(&b, "frame %d: free\n", f)
		}
	}

	pids := make([]int, 0, len(m.processes))
	for pid := range m.processes {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		meta := m.processes[pid]
		fmt.Fprintf(&b, "--- process %d page table (%d pages) ---\n", pid, len(meta.pageTable.Entries))
		for v, entry := range meta.pageTable.Entries {
			status := "unallocated"
			switch {
			case entry.Valid:
				status = fmt.Sprintf("resident frame=%d", entry.FrameIndex)
			case entry.OnBackingStore:
				status = "on-disk"
			}
			fmt.Fprintf(&b, "page %d: %s dirty=%v\n", v, status, entry.Dirty)
		}
	}

	return b.String()
}

// ContentHash is the suppression key for "identical consecutive snapshots
// are not written".
func ContentHash(snapshot string) string {
	sum := sha256.Sum256([]byte(snapshot))
	return fmt.Sprintf("%x", sum)
}
