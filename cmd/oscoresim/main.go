// Command oscoresim is the interactive console for the simulator: a
// read-eval-print loop over a fixed command set (initialize,
// scheduler-start/stop, screen, process-smi, report-util, clear, exit),
// each a thin pass-through onto internal/system.World. Each line typed at
// the prompt is tokenized and dispatched through the same cobra command
// tree a one-shot invocation (oscoresim initialize config.txt) would use.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	con := newConsole()
	root := buildRootCommand(con)

	if len(os.Args) > 1 {
		root.SetArgs(os.Args[1:])
		if err := root.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if con.exiting {
			con.teardown()
			return
		}
	}

	fmt.Println("oscoresim> type 'initialize' to begin, 'exit' to quit")
	reader := bufio.NewScanner(os.Stdin)
	for !con.exiting {
		fmt.Print("> ")
		if !reader.Scan() {
			break
		}
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}
		tokens, err := tokenize(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		root.SetArgs(tokens)
		if err := root.Execute(); err != nil {
			fmt.Println("error:", err)
		}
	}
	con.teardown()
}

// tokenize splits an input line on spaces, treating a double-quoted
// span (screen -c's instruction-list argument) as a single token.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var b strings.Builder
	inQuotes := false
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' && !inQuotes:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flush()
	return tokens, nil
}

func buildRootCommand(con *console) *cobra.Command {
	root := &cobra.Command{
		Use:           "oscoresim",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	initializeCmd := &cobra.Command{
		Use:  "initialize [config-path]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.txt"
			if len(args) > 0 {
				path = args[0]
			}
			profilePath, _ := cmd.Flags().GetString("cpuprofile")
			if profilePath != "" {
				if err := con.startCPUProfile(profilePath); err != nil {
					return err
				}
			}
			return con.initialize(path)
		},
	}
	initializeCmd.Flags().String("cpuprofile", "", "write a CPU profile of the run to this file")

	schedulerStartCmd := &cobra.Command{
		Use:  "scheduler-start",
		RunE: con.requireWorld(func(args []string) error {
			con.world.Start()
			fmt.Println("scheduler started")
			return nil
		}),
	}

	schedulerStopCmd := &cobra.Command{
		Use:  "scheduler-stop",
		RunE: con.requireWorld(func(args []string) error {
			con.world.StopGenerating()
			fmt.Println("scheduler stopped accepting new processes")
			return nil
		}),
	}

	screenCmd := &cobra.Command{
		Use:                "screen",
		DisableFlagParsing: true,
		RunE: con.requireWorld(func(args []string) error {
			con.cmdScreen(args)
			return nil
		}),
	}

	processSMICmd := &cobra.Command{
		Use: "process-smi",
		RunE: con.requireWorld(func(args []string) error {
			con.cmdProcessSMI()
			return nil
		}),
	}

	reportUtilCmd := &cobra.Command{
		Use: "report-util",
		RunE: con.requireWorld(func(args []string) error {
			con.cmdReportUtil()
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use: "clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("\033[H\033[2J")
			return nil
		},
	}

	exitCmd := &cobra.Command{
		Use: "exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			con.exiting = true
			return nil
		},
	}

	root.AddCommand(initializeCmd, schedulerStartCmd, schedulerStopCmd, screenCmd,
		processSMICmd, reportUtilCmd, clearCmd, exitCmd)
	return root
}
