package events

import "sync"

// Latest holds the most recent value of T. Readers never block writers for
// longer than a copy.
type Latest[T any] struct {
	mu  sync.RWMutex
	v   T
	set bool
}

// Store replaces the held value.
func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	l.v = v
	l.set = true
	l.mu.Unlock()
}

// Load returns the held value, and false if nothing was stored yet.
func (l *Latest[T]) Load() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v, l.set
}

// Update applies fn to the held value if one is set.
func (l *Latest[T]) Update(fn func(T) T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		return false
	}
	l.v = fn(l.v)
	return true
}
