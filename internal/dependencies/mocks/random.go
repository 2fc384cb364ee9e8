package mocks

import (
	"fmt"

	"github.com/jwren/castellan/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing. Queued values
// are returned in order; when the queue is empty, deterministic fallbacks
// are produced so tests without explicit expectations still progress.
type MockRandom struct {
	stringQueue []string
	intQueue    []int
	counter     int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates an empty MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// QueueString queues a value to be returned by the next String call
func (r *MockRandom) QueueString(s string) {
	r.stringQueue = append(r.stringQueue, s)
}

// QueueInt queues a value to be returned by the next Intn call
func (r *MockRandom) QueueInt(n int) {
	r.intQueue = append(r.intQueue, n)
}

// Intn returns the next queued int, or 0
func (r *MockRandom) Intn(n int) int {
	if len(r.intQueue) > 0 {
		v := r.intQueue[0]
		r.intQueue = r.intQueue[1:]
		if n > 0 {
			return v % n
		}
		return 0
	}
	return 0
}

// String returns the next queued string, or a deterministic placeholder
func (r *MockRandom) String(length int, alphabet string) string {
	if len(r.stringQueue) > 0 {
		v := r.stringQueue[0]
		r.stringQueue = r.stringQueue[1:]
		return v
	}
	r.counter++
	return fmt.Sprintf("mock%04d", r.counter)
}
