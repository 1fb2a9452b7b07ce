package state

import "sync"

// Signal is a reactive value container holding the last known-good view
// state for one rendered summary (cart totals, unread count, a row
// collection). The value changes only through Set, which is reserved for
// reconciliation against an authoritative server response; speculative
// updates that bypass reconciliation are not representable.
type Signal[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	subs    []func(T)
}

// NewSignal creates a signal with the given initial value.
// The initial value is version 0; the first reconciliation bumps it to 1.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek returns the current value without any subscription semantics.
// It is an alias kept so call sites can document non-reactive reads.
func (s *Signal[T]) Peek() T {
	return s.Get()
}

// Version returns the monotonic reconciliation counter. It increments on
// every Set and never decreases, so callers can detect whether a value
// observed earlier is still current.
func (s *Signal[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value and notifies subscribers.
// Uses copy-before-notify so subscriber callbacks run without the lock held
// and may read the signal again.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.version++
	subs := make([]func(T), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(v)
		}
	}
}

// Update applies fn to the current value and stores the result as one
// atomic reconciliation step.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	v := fn(s.value)
	s.value = v
	s.version++
	subs := make([]func(T), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub != nil {
			sub(v)
		}
	}
}

// Subscribe registers fn to run after every Set. It returns an unsubscribe
// function; calling it more than once is a no-op.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.subs[idx] = nil
			s.mu.Unlock()
		})
	}
}
