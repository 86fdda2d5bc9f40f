package scoring

import (
	"sort"
	"sync"

	"github.com/driftline/intentd/internal/store"
)

// Cache is the materialized score view the query API reads. The engine
// replaces whole value copies under a write lock, so readers never observe a
// partially-updated score and never wait on a recompute for another entity.
type Cache struct {
	mu     sync.RWMutex
	scores map[string]store.EntityScore
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{scores: make(map[string]store.EntityScore)}
}

// Hydrate loads persisted scores, replacing the current contents. Called once
// at startup before the engine starts writing.
func (c *Cache) Hydrate(scores []store.EntityScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = make(map[string]store.EntityScore, len(scores))
	for _, s := range scores {
		c.scores[s.EntityID] = s
	}
}

// Put stores a score copy.
func (c *Cache) Put(s store.EntityScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[s.EntityID] = s
}

// Get returns a copy of an entity's score.
func (c *Cache) Get(entityID string) (store.EntityScore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scores[entityID]
	return s, ok
}

// ListByCategory returns scores in one intent category ordered by
// overall_score descending, entity_id ascending as the stable tie-break.
func (c *Cache) ListByCategory(category string, limit, offset int) []store.EntityScore {
	c.mu.RLock()
	var matched []store.EntityScore
	for _, s := range c.scores {
		if s.IntentCategory == category {
			matched = append(matched, s)
		}
	}
	c.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OverallScore != matched[j].OverallScore {
			return matched[i].OverallScore > matched[j].OverallScore
		}
		return matched[i].EntityID < matched[j].EntityID
	})

	if offset >= len(matched) {
		return nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched
}

// Len returns the number of cached entities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}
