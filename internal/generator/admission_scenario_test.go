package generator

import (
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kxlabs/oscoresim/internal/clock"
	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
	"github.com/kxlabs/oscoresim/internal/scheduler"
)

type fakeBackingStore struct{ pages map[[2]int][]byte }

func newFakeBackingStore() *fakeBackingStore { return &fakeBackingStore{pages: make(map[[2]int][]byte)} }

func (f *fakeBackingStore) WritePage(pid, page int, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	f.pages[[2]int{pid, page}] = stored
	return nil
}

func (f *fakeBackingStore) ReadPage(pid, page int, into []byte) error {
	copy(into, f.pages[[2]int{pid, page}])
	return nil
}

func (f *fakeBackingStore) Close() error { return nil }

// stubClock lets the test fire ticks on demand instead of racing a real
// time.Ticker; it satisfies the structural clock interface New expects.
type stubClock struct {
	listeners []func(uint64)
}

func (c *stubClock) OnTick(fn func(uint64)) {
	c.listeners = append(c.listeners, fn)
}

func (c *stubClock) fire(tick uint64) {
	for _, fn := range c.listeners {
		fn(tick)
	}
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Admission retry: a process that cannot fit is queued rather than
// rejected, and is admitted automatically once an earlier process frees
// enough memory for it.
var _ = Describe("admission retry when memory frees up", func() {
	It("queues a process that does not fit and admits it once room frees up", func() {
		log := discardLog()
		tickSource := clock.New(log) // never Run(); only its Now()/OnTick bookkeeping is needed
		mem := memory.New(memory.Config{TotalMemory: 128, FrameSize: 64, MaxPagesPerProcess: 2}, tickSource, newFakeBackingStore(), log)
		registry := process.NewRegistry()
		sched := scheduler.New(1, mem, tickSource, scheduler.WorkerConfig{Policy: scheduler.FCFS}, log)
		clk := &stubClock{}
		g := New(Config{}, registry, mem, sched, clk, log)

		p1 := g.CreateNamed("p1", 64, []process.Instruction{{Opcode: process.OpSleep, Args: []string{"1"}}})
		p2 := g.CreateNamed("p2", 64, []process.Instruction{{Opcode: process.OpSleep, Args: []string{"1"}}})
		p3 := g.CreateNamed("p3", 64, []process.Instruction{{Opcode: process.OpSleep, Args: []string{"1"}}})

		Expect(registry.Get(p1.PID)).NotTo(BeNil())
		Expect(registry.Get(p2.PID)).NotTo(BeNil())
		Expect(registry.Get(p3.PID)).To(BeNil(), "third process exceeds total_memory and must be queued, not admitted")

		mem.RemoveProcess(p1.PID)
		clk.fire(1)

		Expect(registry.Get(p3.PID)).NotTo(BeNil(), "freed memory must let the pending process be retried and admitted")
	})
})
