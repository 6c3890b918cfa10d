package main

import (
	"fmt"
	"strconv"

	"github.com/kxlabs/oscoresim/internal/process"
)

func (c *console) cmdScreen(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: screen -ls | -s <name> <mem> | -c <name> <mem> \"<instructions>\" | -r <name>")
		return
	}

	switch args[0] {
	case "-ls":
		c.screenList()
	case "-s":
		c.screenStart(args[1:])
	case "-c":
		c.screenCreate(args[1:])
	case "-r":
		c.screenResume(args[1:])
	default:
		fmt.Printf("unknown screen flag %q\n", args[0])
	}
}

func (c *console) screenList() {
	busy, total := c.world.Scheduler.CoreUtilization()
	fmt.Printf("cores used: %d/%d\n", busy, total)
	for _, p := range c.world.Registry.Snapshot() {
		fmt.Printf("%-16s pid=%-4d state=%-8s core=%-2d progress=%d/%d\n",
			p.Name, p.PID, p.State, p.AssignedCore, p.PC, len(p.Instructions))
	}
}

func (c *console) screenStart(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: screen -s <name> <mem>")
		return
	}
	memReq, ok := parseProcessMemory(args[1])
	if !ok {
		return
	}
	proc := c.world.Generator.CreateNamed(args[0], memReq, nil)
	fmt.Printf("created process %q (pid=%d)\n", proc.Name, proc.PID)
}

// parseProcessMemory enforces the interactive-creation contract: a
// power of two within [64, 65536].
func parseProcessMemory(arg string) (int, bool) {
	memReq, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("error: invalid memory size:", arg)
		return 0, false
	}
	if memReq < 64 || memReq > 65536 || memReq&(memReq-1) != 0 {
		fmt.Println("error: memory size must be a power of two in [64, 65536], got", memReq)
		return 0, false
	}
	return memReq, true
}

func (c *console) screenCreate(args []string) {
	if len(args) != 3 {
		fmt.Println(`usage: screen -c <name> <mem> "<instructions>"`)
		return
	}
	memReq, ok := parseProcessMemory(args[1])
	if !ok {
		return
	}
	created, err := c.world.BootstrapProcess(args[0], memReq, args[2])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("created process %q (pid=%d)\n", created.Name, created.PID)
}

func (c *console) screenResume(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: screen -r <name>")
		return
	}
	var found *process.Process
	for _, p := range c.world.Registry.Snapshot() {
		if p.Name == args[0] {
			found = p
			break
		}
	}
	if found == nil {
		fmt.Printf("no such process %q\n", args[0])
		return
	}
	if found.State == process.Crashed {
		addr := uint16(0)
		if found.FaultingAddress != nil {
			addr = *found.FaultingAddress
		}
		fmt.Printf("process %q (pid=%d) crashed at address 0x%X, end_time=%d\n", found.Name, found.PID, addr, found.EndTick)
		return
	}
	fmt.Printf("process %q (pid=%d) state=%s\n", found.Name, found.PID, found.State)
	for _, line := range found.Logs {
		fmt.Println(line)
	}
}
