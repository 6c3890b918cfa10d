// Package diag gathers host diagnostics (CPU count and load) used to
// check a run's num-cpu setting against the machine it's running on, and
// to render process-smi output.
package diag

import (
	"log/slog"

	"github.com/shirou/gopsutil/cpu"
)

// HostCPUCount returns the number of logical CPUs gopsutil can see on this
// host. Falls back to 1 (logged) if the host query fails, rather than
// crashing the whole simulator.
func HostCPUCount(log *slog.Logger) int {
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		log.Warn("host CPU count query failed, defaulting to 1", "error", err)
		return 1
	}
	return counts
}

// WarnIfOversubscribed logs a warning (not a fatal error) when the
// configured num-cpu exceeds what the host actually has; the simulation
// is still valid, just oversubscribed.
func WarnIfOversubscribed(configured int, log *slog.Logger) {
	host := HostCPUCount(log)
	if configured > host {
		log.Warn("num-cpu exceeds host logical CPU count", "configured", configured, "host", host)
	}
}

// HostLoad reports the host's overall CPU utilization as a percentage,
// measured since the previous call, for process-smi's "host" diagnostics
// line. Returns 0 if unavailable.
func HostLoad(log *slog.Logger) float64 {
	avg, err := cpu.Percent(0, false)
	if err != nil || len(avg) == 0 {
		log.Debug("host load query failed", "error", err)
		return 0
	}
	return avg[0]
}
