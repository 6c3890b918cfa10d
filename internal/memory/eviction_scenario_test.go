package memory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Page fault across eviction: four processes, two pages each, four physical
// frames. Tests the manager's paging mechanics directly, inserting page
// tables the way admission would but without going through CreateProcess's
// own budget gate; that gate, and the retry behavior it drives, is
// exercised separately at the generator level.
var _ = Describe("page fault across eviction", func() {
	It("evicts dirty pages under oversubscription and recalls them intact", func() {
		mgr, backing := newTestManager(256, 64) // 4 frames
		pids := []int{1, 2, 3, 4}
		for _, pid := range pids {
			mgr.processes[pid] = &processMeta{
				memoryRequired: 128,
				pageTable:      newPageTable(pid, 2),
			}
		}

		for _, pid := range pids {
			fault := mgr.WriteMemory(pid, 0, uint16(pid*10))
			Expect(fault).To(Equal(PageFault))
		}
		for _, pid := range pids {
			fault := mgr.WriteMemory(pid, 64, uint16(pid*100))
			Expect(fault).To(Equal(PageFault))
		}

		faults, evictions := mgr.Counters()
		Expect(faults).To(BeNumerically(">=", 8))
		Expect(evictions).To(BeNumerically(">=", 4))
		Expect(len(backing.pages)).To(BeNumerically(">=", 4))

		for _, pid := range pids {
			value, fault := mgr.ReadMemory(pid, 0)
			Expect(fault).To(BeElementOf(OK, PageFault), "a page evicted earlier must still read back correctly, possibly faulting again")
			Expect(value).To(Equal(uint16(pid * 10)))
		}
	})
})
