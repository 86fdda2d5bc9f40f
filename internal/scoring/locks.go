package scoring

import "sync"

// entityLocks serializes recomputes per entity. Different entities proceed
// concurrently; the same entity never has two recomputes racing.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for an entity, creating it on first use. Locks are
// never evicted; the map is bounded by the number of scored entities.
func (l *entityLocks) get(entityID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[entityID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[entityID] = m
	}
	return m
}
