package memory

import (
	"fmt"
	"os"
)

// BackingStore persists evicted dirty pages, keyed by (pid, page#). It is
// byte-addressable: offset(pid, page) = (pid*maxPagesPerProcess + page) *
// frameSize. Implementations must write/read exactly frameSize bytes per
// call.
type BackingStore interface {
	WritePage(pid, page int, data []byte) error
	ReadPage(pid, page int, into []byte) error
	Close() error
}

// fileBackingStore is the production BackingStore: a flat, random-access
// file truncated at startup ("csopesy-backing-store.txt",
// binary despite the extension).
type fileBackingStore struct {
	file               *os.File
	frameSize          int
	maxPagesPerProcess int
}

// OpenFileBackingStore creates (truncating) the backing store file at path.
func OpenFileBackingStore(path string, frameSize, maxPagesPerProcess int) (BackingStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening backing store %q: %w", path, err)
	}
	return &fileBackingStore{
		file:               f,
		frameSize:          frameSize,
		maxPagesPerProcess: maxPagesPerProcess,
	}, nil
}

func (s *fileBackingStore) offset(pid, page int) int64 {
	return int64(pid*s.maxPagesPerProcess+page) * int64(s.frameSize)
}

func (s *fileBackingStore) WritePage(pid, page int, data []byte) error {
	if len(data) != s.frameSize {
		return fmt.Errorf("backing store write: expected %d bytes, got %d", s.frameSize, len(data))
	}
	_, err := s.file.WriteAt(data, s.offset(pid, page))
	return err
}

func (s *fileBackingStore) ReadPage(pid, page int, into []byte) error {
	if len(into) != s.frameSize {
		return fmt.Errorf("backing store read: expected %d bytes, got %d", s.frameSize, len(into))
	}
	_, err := s.file.ReadAt(into, s.offset(pid, page))
	return err
}

func (s *fileBackingStore) Close() error {
	return s.file.Close()
}
