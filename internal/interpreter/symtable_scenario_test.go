package interpreter

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kxlabs/oscoresim/internal/process"
)

// Symbol table saturation: a process that declares 32 variables has filled
// its table; a 33rd DECLARE is a no-op rather than a crash, but the
// variable it tried to introduce was never bound, so reading it later
// crashes the process.
var _ = Describe("symbol table saturation", func() {
	It("silently drops the 33rd DECLARE and crashes on a later read of it", func() {
		instrs := make([]process.Instruction, 0, process.MaxVariables+2)
		for i := 0; i < process.MaxVariables; i++ {
			name := fmt.Sprintf("v%02d", i)
			instrs = append(instrs, process.Instruction{Opcode: process.OpDeclare, Args: []string{name, "1"}})
		}
		instrs = append(instrs, process.Instruction{Opcode: process.OpDeclare, Args: []string{"overflow", "1"}})
		instrs = append(instrs, process.Instruction{Opcode: process.OpPrint, Args: []string{"overflow"}})

		p := process.New(1, "saturated", 64, instrs)

		for i := 0; i < process.MaxVariables; i++ {
			Expect(Step(p, fakeMem{}, uint64(i), Config{})).To(Equal(Advanced))
		}

		// the 33rd DECLARE: symbol table is full, so it's a no-op, not a crash
		outcome := Step(p, fakeMem{}, uint64(process.MaxVariables), Config{})
		Expect(outcome).To(Equal(Advanced))
		Expect(p.State).NotTo(Equal(process.Crashed))
		_, ok := p.LookupVariable("overflow")
		Expect(ok).To(BeFalse())

		// PRINT-ing the never-bound variable crashes the process
		outcome = Step(p, fakeMem{}, uint64(process.MaxVariables+1), Config{})
		Expect(outcome).To(Equal(Crashed))
		Expect(p.State).To(Equal(process.Crashed))
	})
})
