// Package keymutex provides per-key mutual exclusion: at most one holder
// per key, waiters served in FIFO arrival order, full concurrency across
// distinct keys. The registry is an explicit value owned by its caller, not
// package-level state, so tests can run independent instances.
package keymutex

import (
	"context"
	"sync"
)

// KeyedMutex serializes critical sections that share a key.
//
// A registry entry exists exactly while its key is held; once the last
// holder releases with no waiters queued, the entry is deleted, so idle
// keys cost no memory.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyQueue
}

// keyQueue tracks the waiters for one held key. Each waiter owns a buffered
// grant channel; release hands the lock to the queue head.
type keyQueue struct {
	waiters []chan struct{}
}

// New creates an empty registry.
func New() *KeyedMutex {
	return &KeyedMutex{keys: make(map[string]*keyQueue)}
}

// Acquire blocks until the key is free or ctx is done. On success it
// returns a release function that must be called exactly once; calling it
// more than once is a no-op. Callers should defer it immediately so the
// lock is released on every exit path.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	q, held := m.keys[key]
	if !held {
		m.keys[key] = &keyQueue{}
		m.mu.Unlock()
		return m.releaseOnce(key), nil
	}

	grant := make(chan struct{}, 1)
	q.waiters = append(q.waiters, grant)
	m.mu.Unlock()

	select {
	case <-grant:
		return m.releaseOnce(key), nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range q.waiters {
			if w == grant {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				m.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		m.mu.Unlock()
		// The grant raced with cancellation: we already own the lock.
		// Hand it to the next waiter instead of leaking it.
		m.release(key)
		return nil, ctx.Err()
	}
}

// Len reports the number of keys currently held or contended. An idle
// registry reports zero.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// Waiters reports how many acquirers are queued behind the current holder
// of key. Zero for an uncontended or idle key.
func (m *KeyedMutex) Waiters(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.keys[key]; ok {
		return len(q.waiters)
	}
	return 0
}

func (m *KeyedMutex) releaseOnce(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(key) })
	}
}

func (m *KeyedMutex) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.keys[key]
	if !ok {
		return
	}
	if len(q.waiters) == 0 {
		delete(m.keys, key)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	next <- struct{}{}
}
