package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"

	"github.com/kxlabs/oscoresim/internal/concurrency"
)

// SnapshotInterval is the default tick cadence at which snapshots are
// taken.
const SnapshotInterval = 100

// maxConcurrentWrites bounds how many snapshot files can be written at
// once. Each capture still starts its own goroutine, which waits for a
// free slot before writing.
const maxConcurrentWrites = 2

// SnapshotWriter persists point-in-time memory snapshots asynchronously,
// suppressing writes whose content is identical to the last one written.
type SnapshotWriter struct {
	dir string
	log *slog.Logger

	sigMu    sync.Mutex
	lastHash string

	inflight *concurrency.Semaphore
	wg       sync.WaitGroup
}

// NewSnapshotWriter creates a writer that drops files under dir
// (typically "snapshots/").
func NewSnapshotWriter(dir string, log *slog.Logger) *SnapshotWriter {
	return &SnapshotWriter{
		dir:      dir,
		log:      log.With("component", "snapshot_writer"),
		inflight: concurrency.NewSemaphore(maxConcurrentWrites),
	}
}

// Capture takes a snapshot of mgr at tick and, unless it is a duplicate of
// the last snapshot written, enqueues it for an asynchronous write to
// snapshots/memory_tick_<n>.txt.
func (w *SnapshotWriter) Capture(mgr *Manager, tick uint64) {
	content := mgr.Snapshot(tick)
	hash := ContentHash(content)

	w.sigMu.Lock()
	duplicate := hash == w.lastHash
	if !duplicate {
		w.lastHash = hash
	}
	w.sigMu.Unlock()

	if duplicate {
		w.log.Debug("snapshot suppressed (unchanged)", "tick", tick)
		return
	}

	generation := xid.New().String()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("snapshot writer goroutine panicked, exiting", "generation", generation, "panic", r)
			}
		}()
		w.inflight.Acquire()
		defer w.inflight.Release()
		w.write(tick, generation, content)
	}()
}

func (w *SnapshotWriter) write(tick uint64, generation, content string) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.log.Error("creating snapshot directory failed", "generation", generation, "error", err)
		return
	}
	path := filepath.Join(w.dir, fmt.Sprintf("memory_tick_%d.txt", tick))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		w.log.Error("writing snapshot failed", "generation", generation, "path", path, "error", err)
		return
	}
	w.log.Info("snapshot written", "generation", generation, "tick", tick, "path", path)
}

// Drain blocks until every in-flight snapshot write has completed. Called
// at shutdown before the backing store is closed.
func (w *SnapshotWriter) Drain() {
	w.wg.Wait()
}
