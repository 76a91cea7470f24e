// Package inflight provides a non-blocking per-key guard used to serialize
// user-initiated mutations on a single entity. A caller acquires the key
// before issuing a remote call and releases it when the call settles; a
// second acquisition of the same key while the first is held fails
// immediately instead of queueing.
package inflight

import (
	"sync"

	"github.com/go-faster/errors"
)

// ErrConflict is returned when a mutation is already in flight for the key.
var ErrConflict = errors.New("operation already in flight")

// Guard tracks which keys currently have an operation in flight.
// The zero value is not usable; call New.
type Guard[K comparable] struct {
	mu   sync.Mutex
	held map[K]struct{}
}

// New returns an empty Guard.
func New[K comparable]() *Guard[K] {
	return &Guard[K]{held: make(map[K]struct{})}
}

// TryAcquire marks key as in flight. It returns ErrConflict without blocking
// if the key is already held.
func (g *Guard[K]) TryAcquire(key K) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return ErrConflict
	}
	g.held[key] = struct{}{}
	return nil
}

// Release clears the in-flight mark for key. Releasing a key that is not
// held is a no-op.
func (g *Guard[K]) Release(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
}

// Held reports whether key currently has an operation in flight.
func (g *Guard[K]) Held(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

// Slot guards a single logical resource, such as the whole session.
type Slot struct {
	guard *Guard[struct{}]
}

// NewSlot returns an unheld Slot.
func NewSlot() *Slot {
	return &Slot{guard: New[struct{}]()}
}

// TryAcquire marks the slot as in flight, or returns ErrConflict.
func (s *Slot) TryAcquire() error {
	return s.guard.TryAcquire(struct{}{})
}

// Release clears the slot.
func (s *Slot) Release() {
	s.guard.Release(struct{}{})
}
