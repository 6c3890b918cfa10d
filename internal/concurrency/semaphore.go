// Package concurrency holds small channel-based synchronization helpers
// shared by a few components that need to bound concurrency without
// pulling in a heavier primitive.
package concurrency

// Semaphore is a counting semaphore built on a buffered channel.
type Semaphore struct {
	c chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity (clamped to at
// least 1).
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{c: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is available.
func (s *Semaphore) Acquire() {
	s.c <- struct{}{}
}

// Release frees a slot.
func (s *Semaphore) Release() {
	select {
	case <-s.c:
	default:
		// already at full capacity, nothing to release
	}
}

// TryAcquire acquires a slot without blocking, reporting whether it got one.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.c <- struct{}{}:
		return true
	default:
		return false
	}
}
