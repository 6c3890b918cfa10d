package interpreter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kxlabs/oscoresim/internal/memory"
	"github.com/kxlabs/oscoresim/internal/process"
)

// fakeMem backs every address with zeroes and never faults, so these specs
// isolate the interpreter's own crash logic from the paging machinery
// already covered in internal/memory.
type fakeMem struct{}

func (fakeMem) ReadMemory(pid int, addr uint16) (uint16, memory.Fault)  { return 0, memory.OK }
func (fakeMem) WriteMemory(pid int, addr uint16, value uint16) memory.Fault { return memory.OK }

// Crash on undeclared variable: PRINT-ing a name with no prior DECLARE
// crashes the process; the scheduler's worker records the crash tick as
// end_time, which screen -r later reports alongside the faulting address.
var _ = Describe("crash on undeclared variable", func() {
	It("crashes the process when PRINT references an undeclared variable", func() {
		p := process.New(1, "badprint", 64, []process.Instruction{
			{Opcode: process.OpPrint, Args: []string{"v1"}},
		})

		outcome := Step(p, fakeMem{}, 0, Config{})

		Expect(outcome).To(Equal(Crashed))
		Expect(p.State).To(Equal(process.Crashed))
	})

	It("does not crash once the variable has been declared first", func() {
		p := process.New(1, "goodprint", 64, []process.Instruction{
			{Opcode: process.OpDeclare, Args: []string{"v1", "5"}},
			{Opcode: process.OpPrint, Args: []string{"v1"}},
		})

		Expect(Step(p, fakeMem{}, 0, Config{})).To(Equal(Advanced))
		Expect(Step(p, fakeMem{}, 1, Config{})).To(Equal(Advanced))
		Expect(p.State).NotTo(Equal(process.Crashed))
	})
})
