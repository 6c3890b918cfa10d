package scheduler

import (
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kxlabs/oscoresim/internal/clock"
	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackingStore struct {
	mu    sync.Mutex
	pages map[[2]int][]byte
}

func newFakeBackingStore() *fakeBackingStore { return &fakeBackingStore{pages: make(map[[2]int][]byte)} }

func (f *fakeBackingStore) WritePage(pid, page int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	f.pages[[2]int{pid, page}] = stored
	return nil
}

func (f *fakeBackingStore) ReadPage(pid, page int, into []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(into, f.pages[[2]int{pid, page}])
	return nil
}

func (f *fakeBackingStore) Close() error { return nil }

// Sleep honored: a SLEEP on an otherwise idle queue parks the process in
// WAITING until the clock has advanced far enough, then it resumes and
// finishes.
var _ = Describe("sleeping process stays off-core until its wake tick", func() {
	It("keeps a process WAITING until its sleep deadline, then resumes it", func() {
		log := discardLog()
		clk := clock.New(log)
		mem := memory.New(memory.Config{TotalMemory: 1024, FrameSize: 64, MaxPagesPerProcess: 16}, clk, newFakeBackingStore(), log)
		sched := New(1, mem, clk, WorkerConfig{Policy: FCFS}, log)

		const sleepTicks = 10
		p := process.New(1, "sleeper", 64, []process.Instruction{
			{Opcode: process.OpSleep, Args: []string{"10"}},
		})
		Expect(mem.CreateProcess(p.PID, p.MemoryRequired)).To(Equal(memory.OK))
		sched.Admit(p)

		go clk.Run()
		sched.Start()
		defer func() {
			sched.Stop()
			clk.Stop()
		}()

		Eventually(func() process.State { return p.State }, time.Second, time.Millisecond).Should(Equal(process.Waiting))
		Eventually(func() uint64 { return clk.Now() }, time.Second, time.Millisecond).Should(BeNumerically(">=", sleepTicks))
		Eventually(func() process.State { return p.State }, time.Second, time.Millisecond).Should(Equal(process.Finished))
	})
})
