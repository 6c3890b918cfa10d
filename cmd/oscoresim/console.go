package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/kxlabs/oscoresim/internal/system"
)

// console holds the one World a REPL session can have live at a time, plus
// the exit flag cobra's exitCmd sets.
type console struct {
	world    *system.World
	exiting  bool
	profFile *os.File
}

func newConsole() *console {
	return &console{}
}

func (c *console) initialize(path string) error {
	w, err := system.Bootstrap(path)
	if err != nil {
		return err
	}
	c.world = w
	c.world.RegisterShutdown()
	fmt.Println("initialized from", path)
	return nil
}

// requireWorld wraps a command body that needs an initialized World into a
// cobra RunE, erroring instead of panicking if 'initialize' was never run.
func (c *console) requireWorld(fn func(args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if c.world == nil {
			return fmt.Errorf("run 'initialize' first")
		}
		return fn(args)
	}
}

// startCPUProfile begins writing a runtime/pprof CPU profile to path; the
// profile runs until teardown.
func (c *console) startCPUProfile(path string) error {
	if c.profFile != nil {
		return fmt.Errorf("CPU profiling already active")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CPU profile %q: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	c.profFile = f
	return nil
}

func (c *console) teardown() {
	if c.world != nil {
		c.world.Shutdown()
	}
	if c.profFile != nil {
		pprof.StopCPUProfile()
		c.profFile.Close()
		c.profFile = nil
	}
}
