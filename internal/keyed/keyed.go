package keyed

import "sync"

// Mutex provides an independent critical section per key. The engine uses
// one instance keyed by player id: all state-mutating operations for a
// single player's process set serialize through that player's lock while
// unrelated players proceed fully in parallel.
//
// Entries are created lazily and kept for the lifetime of the Mutex; the
// key space (players with engine activity) is bounded, so no eviction is
// needed.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Mutex {
	return &Mutex{locks: map[string]*sync.Mutex{}}
}

func (m *Mutex) get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Lock acquires the critical section for key.
func (m *Mutex) Lock(key string) {
	m.get(key).Lock()
}

// Unlock releases the critical section for key.
func (m *Mutex) Unlock(key string) {
	m.get(key).Unlock()
}
