// Package config loads and validates the flat key=value configuration file
// that fixes a run's CPU count, scheduling policy and memory layout.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the fully validated set of runtime parameters. Every key is
// required; a missing or invalid value is not replaced by a default but
// ends the run (see Load).
type Config struct {
	NumCPU           int
	Scheduler        string
	QuantumCycles    int
	BatchProcessFreq uint64
	MinInstructions  int
	MaxInstructions  int
	DelayPerExec     int
	MaxOverallMem    int
	MemPerFrame      int
	MinMemPerProc    int
	MaxMemPerProc    int
}

const (
	keyNumCPU           = "num-cpu"
	keyScheduler        = "scheduler"
	keyQuantumCycles    = "quantum-cycles"
	keyBatchProcessFreq = "batch-process-freq"
	keyMinIns           = "min-ins"
	keyMaxIns           = "max-ins"
	keyDelayPerExec     = "delay-per-exec"
	keyMaxOverallMem    = "max-overall-mem"
	keyMemPerFrame      = "mem-per-frame"
	keyMinMemPerProc    = "min-mem-per-proc"
	keyMaxMemPerProc    = "max-mem-per-proc"
)

// Load reads path as a godotenv-style flat file, validates every key,
// and fatally exits on a malformed file (log, then os.Exit(1)) rather
// than threading a load error through every caller.
func Load(path string, log *slog.Logger) *Config {
	log.Info("loading configuration", "path", path)

	raw, err := godotenv.Read(path)
	if err != nil {
		log.Error("reading configuration file failed", "path", path, "error", err)
		os.Exit(1)
	}

	cfg, err := fromMap(raw)
	if err != nil {
		log.Error("configuration validation failed", "path", path, "error", err)
		os.Exit(1)
	}

	log.Info("configuration loaded",
		"num_cpu", cfg.NumCPU, "scheduler", cfg.Scheduler, "quantum_cycles", cfg.QuantumCycles,
		"max_overall_mem", cfg.MaxOverallMem, "mem_per_frame", cfg.MemPerFrame)
	return cfg
}

func fromMap(raw map[string]string) (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.NumCPU, err = requireInt(raw, keyNumCPU); err != nil {
		return nil, err
	}
	if cfg.NumCPU < 1 {
		return nil, fmt.Errorf("%s must be >= 1, got %d", keyNumCPU, cfg.NumCPU)
	}

	cfg.Scheduler, err = requireString(raw, keyScheduler)
	if err != nil {
		return nil, err
	}
	if !validScheduler(cfg.Scheduler) {
		return nil, fmt.Errorf("%s: unrecognized policy %q", keyScheduler, cfg.Scheduler)
	}

	if cfg.QuantumCycles, err = requireInt(raw, keyQuantumCycles); err != nil {
		return nil, err
	}

	freq, err := requireInt(raw, keyBatchProcessFreq)
	if err != nil {
		return nil, err
	}
	if freq < 0 {
		return nil, fmt.Errorf("%s must be >= 0, got %d", keyBatchProcessFreq, freq)
	}
	cfg.BatchProcessFreq = uint64(freq)

	if cfg.MinInstructions, err = requireInt(raw, keyMinIns); err != nil {
		return nil, err
	}
	if cfg.MaxInstructions, err = requireInt(raw, keyMaxIns); err != nil {
		return nil, err
	}
	if cfg.MaxInstructions < cfg.MinInstructions {
		return nil, fmt.Errorf("%s (%d) must be >= %s (%d)", keyMaxIns, cfg.MaxInstructions, keyMinIns, cfg.MinInstructions)
	}

	if cfg.DelayPerExec, err = requireInt(raw, keyDelayPerExec); err != nil {
		return nil, err
	}
	if cfg.DelayPerExec < 0 {
		return nil, fmt.Errorf("%s must be >= 0, got %d", keyDelayPerExec, cfg.DelayPerExec)
	}

	if cfg.MaxOverallMem, err = requirePow2(raw, keyMaxOverallMem); err != nil {
		return nil, err
	}
	if cfg.MemPerFrame, err = requirePow2(raw, keyMemPerFrame); err != nil {
		return nil, err
	}
	if cfg.MemPerFrame > cfg.MaxOverallMem {
		return nil, fmt.Errorf("%s (%d) cannot exceed %s (%d)", keyMemPerFrame, cfg.MemPerFrame, keyMaxOverallMem, cfg.MaxOverallMem)
	}

	if cfg.MinMemPerProc, err = requirePow2(raw, keyMinMemPerProc); err != nil {
		return nil, err
	}
	if cfg.MaxMemPerProc, err = requirePow2(raw, keyMaxMemPerProc); err != nil {
		return nil, err
	}
	if cfg.MaxMemPerProc < cfg.MinMemPerProc {
		return nil, fmt.Errorf("%s (%d) must be >= %s (%d)", keyMaxMemPerProc, cfg.MaxMemPerProc, keyMinMemPerProc, cfg.MinMemPerProc)
	}

	return cfg, nil
}

func validScheduler(s string) bool {
	switch s {
	case "fcfs", "sjf", "srtf", "priority_np", "priority_p", "rr":
		return true
	default:
		return false
	}
}

func requireString(raw map[string]string, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required key %q", key)
	}
	return v, nil
}

func requireInt(raw map[string]string, key string) (int, error) {
	s, err := requireString(raw, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, s)
	}
	return n, nil
}

func requirePow2(raw map[string]string, key string) (int, error) {
	n, err := requireInt(raw, key)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n&(n-1) != 0 {
		return 0, fmt.Errorf("%s must be a power of two, got %d", key, n)
	}
	return n, nil
}
