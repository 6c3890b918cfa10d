// Package memory implements the paged virtual memory manager: per-process
// page tables, a FIFO-replaced physical frame pool, a disk-backed store for
// evicted dirty pages, and point-in-time snapshots of the whole thing.
package memory

import (
	"fmt"
	"log/slog"
	"sync"
)

// TickSource is the minimal clock dependency the manager needs: a
// monotonically increasing tick counter for last-accessed bookkeeping.
type TickSource interface {
	Now() uint64
}

// Config fixes the manager's sizing. TotalMemory and FrameSize must both be
// powers of two; MaxPagesPerProcess bounds any single process and
// partitions the backing store.
type Config struct {
	TotalMemory        int
	FrameSize          int
	MaxPagesPerProcess int
}

func (c Config) totalFrames() int {
	return c.TotalMemory / c.FrameSize
}

type processMeta struct {
	memoryRequired int
	pageTable      *PageTable
}

// Manager is the single coarse-locked owner of all physical frames, page
// tables and the backing store handle.
type Manager struct {
	mu sync.Mutex

	cfg     Config
	clock   TickSource
	backing BackingStore
	log     *slog.Logger

	frames    *frameTable
	processes map[int]*processMeta
	physMem   []byte

	totalReserved  int
	pageFaults     int
	dirtyEvictions int
}

// New constructs a Manager. cfg's TotalMemory/FrameSize are assumed valid
// (validated at config-load time).
func New(cfg Config, clock TickSource, backing BackingStore, log *slog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		clock:     clock,
		backing:   backing,
		log:       log.With("component", "memory_manager"),
		frames:    newFrameTable(cfg.totalFrames(), cfg.FrameSize),
		processes: make(map[int]*processMeta),
		physMem:   make([]byte, cfg.TotalMemory),
	}
}

func (m *Manager) frameSlice(frameIndex int) []byte {
	start := frameIndex * m.cfg.FrameSize
	return m.physMem[start : start+m.cfg.FrameSize]
}

func (m *Manager) frameByte(frameIndex, offset int) byte {
	return m.physMem[frameIndex*m.cfg.FrameSize+offset]
}

func (m *Manager) setFrameByte(frameIndex, offset int, b byte) {
	m.physMem[frameIndex*m.cfg.FrameSize+offset] = b
}

// CreateProcess admits a process's page table. No physical frames are
// reserved here; allocation is lazy, via faults.
func (m *Manager) CreateProcess(pid, memoryRequired int) Fault {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.processes[pid]; exists {
		return AlreadyExists
	}
	pageCount := pageCountFor(memoryRequired, m.cfg.FrameSize)
	if pageCount > m.cfg.MaxPagesPerProcess {
		// The backing store is partitioned at max_pages_per_process per
		// pid; a bigger page table would spill into the next pid's slots.
		m.log.Error("admission rejected: page table exceeds per-process limit",
			"pid", pid, "pages", pageCount, "max_pages_per_process", m.cfg.MaxPagesPerProcess)
		return ExceedsProcessLimit
	}
	if m.totalReserved+memoryRequired > m.cfg.TotalMemory {
		m.log.Debug("admission deferred: insufficient memory", "pid", pid,
			"memory_required", memoryRequired, "reserved", m.totalReserved, "total", m.cfg.TotalMemory)
		return InsufficientMemory
	}

	m.processes[pid] = &processMeta{
		memoryRequired: memoryRequired,
		pageTable:      newPageTable(pid, pageCount),
	}
	m.totalReserved += memoryRequired
	m.log.Info("process admitted", "pid", pid, "memory_required", memoryRequired, "pages", pageCount)
	return OK
}

// RemoveProcess releases a process's page table and frees its frames,
// without writing anything back; the process is gone, its data does not
// need to survive it.
func (m *Manager) RemoveProcess(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, exists := m.processes[pid]
	if !exists {
		return
	}
	for _, entry := range meta.pageTable.Entries {
		if entry.Valid {
			m.frames.occupied[entry.FrameIndex] = false
			m.removeFromFIFO(entry.FrameIndex)
		}
	}
	m.totalReserved -= meta.memoryRequired
	delete(m.processes, pid)
	m.log.Info("process removed", "pid", pid)
}

func (m *Manager) removeFromFIFO(frameIndex int) {
	for i, f := range m.frames.fifo {
		if f == frameIndex {
			m.frames.fifo = append(m.frames.fifo[:i], m.frames.fifo[i+1:]...)
			return
		}
	}
}

// addressBounds validates addr against the read/write contract and
// returns the (page, offset) split on success.
func (m *Manager) addressBounds(meta *processMeta, addr uint16) (page, offset int, fault Fault) {
	a := int(addr)
	if a+2 > meta.memoryRequired {
		return 0, 0, OutOfBounds
	}
	offsetInFrame := a % m.cfg.FrameSize
	if offsetInFrame+2 > m.cfg.FrameSize {
		return 0, 0, StraddlesPage
	}
	return a / m.cfg.FrameSize, offsetInFrame, OK
}

// ReadMemory reads a little-endian 16-bit value at addr in pid's address
// space.
func (m *Manager) ReadMemory(pid int, addr uint16) (value uint16, fault Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, exists := m.processes[pid]
	if !exists {
		return 0, NoSuchProcess
	}
	page, offset, f := m.addressBounds(meta, addr)
	if f != OK {
		return 0, f
	}

	faulted, err := m.ensureResident(pid, meta, page)
	if err != nil {
		m.log.Error("fault-in failed", "pid", pid, "page", page, "error", err)
		return 0, OutOfBounds
	}

	entry := &meta.pageTable.Entries[page]
	lo := m.frameByte(entry.FrameIndex, offset)
	hi := m.frameByte(entry.FrameIndex, offset+1)
	value = uint16(lo) | uint16(hi)<<8
	entry.LastAccessed = m.clock.Now()

	if faulted {
		return value, PageFault
	}
	return value, OK
}

// WriteMemory writes a little-endian 16-bit value at addr, marking the page
// dirty.
func (m *Manager) WriteMemory(pid int, addr uint16, value uint16) Fault {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, exists := m.processes[pid]
	if !exists {
		return NoSuchProcess
	}
	page, offset, f := m.addressBounds(meta, addr)
	if f != OK {
		return f
	}

	faulted, err := m.ensureResident(pid, meta, page)
	if err != nil {
		m.log.Error("fault-in failed", "pid", pid, "page", page, "error", err)
		return OutOfBounds
	}

	entry := &meta.pageTable.Entries[page]
	m.setFrameByte(entry.FrameIndex, offset, byte(value))
	m.setFrameByte(entry.FrameIndex, offset+1, byte(value>>8))
	entry.Dirty = true
	entry.LastAccessed = m.clock.Now()

	if faulted {
		return PageFault
	}
	return OK
}

// TouchPage reserves the page containing addr without reading any bytes;
// used by the CPU worker before fetching an instruction. Returns whether a
// fault occurred.
func (m *Manager) TouchPage(pid int, addr uint16) (faultOccurred bool, fault Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, exists := m.processes[pid]
	if !exists {
		return false, NoSuchProcess
	}
	page := int(addr) / m.cfg.FrameSize
	if page >= len(meta.pageTable.Entries) {
		return false, OutOfBounds
	}

	faulted, err := m.ensureResident(pid, meta, page)
	if err != nil {
		return false, OutOfBounds
	}
	meta.pageTable.Entries[page].LastAccessed = m.clock.Now()
	return faulted, OK
}

// ensureResident makes sure virtual page `page` of pid is resident,
// faulting it in if necessary. Returns whether a fault happened.
func (m *Manager) ensureResident(pid int, meta *processMeta, page int) (faulted bool, err error) {
	entry := &meta.pageTable.Entries[page]
	if entry.Valid {
		return false, nil
	}
	if err := m.faultIn(pid, meta, page); err != nil {
		return false, err
	}
	return true, nil
}

// faultIn implements the fault-in path: pick a free frame (evicting
// if necessary), load from backing store or zero-fill, mark the page valid.
func (m *Manager) faultIn(pid int, meta *processMeta, page int) error {
	frameIndex := m.frames.allocate(pid, page)
	if frameIndex == -1 {
		evicted, err := m.evictOne()
		if err != nil {
			return err
		}
		frameIndex = evicted
		m.frames.occupied[frameIndex] = true
		m.frames.frameToPage[frameIndex] = occupant{pid: pid, page: page}
		m.frames.fifo = append(m.frames.fifo, frameIndex)
	}

	entry := &meta.pageTable.Entries[page]
	frameBytes := m.frameSlice(frameIndex)
	if entry.OnBackingStore {
		if err := m.backing.ReadPage(pid, page, frameBytes); err != nil {
			return fmt.Errorf("reading page (%d,%d) from backing store: %w", pid, page, err)
		}
	} else {
		for i := range frameBytes {
			frameBytes[i] = 0
		}
	}

	entry.Valid = true
	entry.Dirty = false
	entry.FrameIndex = frameIndex
	entry.LastAccessed = m.clock.Now()
	m.pageFaults++
	m.log.Debug("page fault", "pid", pid, "page", page, "frame", frameIndex, "faults_total", m.pageFaults)
	return nil
}

// evictOne pops the FIFO-oldest frame, writing it back if dirty, and
// returns the now-free frame index.
func (m *Manager) evictOne() (int, error) {
	frameIndex, occ, ok := m.frames.evictOldest()
	if !ok {
		return 0, fmt.Errorf("no evictable frame: memory exhausted with no victim")
	}

	victimMeta, exists := m.processes[occ.pid]
	if exists && occ.page < len(victimMeta.pageTable.Entries) {
		entry := &victimMeta.pageTable.Entries[occ.page]
		if entry.Dirty {
			if err := m.backing.WritePage(occ.pid, occ.page, m.frameSlice(frameIndex)); err != nil {
				return 0, fmt.Errorf("writing back page (%d,%d): %w", occ.pid, occ.page, err)
			}
			entry.OnBackingStore = true
			m.dirtyEvictions++
			m.log.Debug("dirty eviction", "pid", occ.pid, "page", occ.page, "frame", frameIndex, "dirty_evictions_total", m.dirtyEvictions)
		}
		entry.Valid = false
		entry.FrameIndex = 0
	}
	return frameIndex, nil
}

// Counters returns the running page-fault and dirty-eviction counts.
func (m *Manager) Counters() (pageFaults, dirtyEvictions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageFaults, m.dirtyEvictions
}

// ReservedMemory reports how much of max-overall-mem is currently claimed
// by admitted processes' declared memory requirements.
func (m *Manager) ReservedMemory() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalReserved
}

// UsedFrames reports the number of currently-occupied physical frames.
func (m *Manager) UsedFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.totalFrames() - m.frames.freeFrames()
}

// PageTableSnapshot returns a copy of pid's page table, for diagnostics and
// tests. The copy is safe to inspect without holding the manager's lock.
func (m *Manager) PageTableSnapshot(pid int) (PageTable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, exists := m.processes[pid]
	if !exists {
		return PageTable{}, false
	}
	entries := make([]PageTableEntry, len(meta.pageTable.Entries))
	copy(entries, meta.pageTable.Entries)
	return PageTable{PID: pid, Entries: entries}, true
}
