package scoring

import (
	"testing"

	"github.com/driftline/intentd/internal/store"
)

func cachedScore(entityID string, score float64, category string) store.EntityScore {
	return store.EntityScore{
		EntityID:       entityID,
		EntityType:     store.EntityCompany,
		OverallScore:   score,
		IntentCategory: category,
	}
}

func TestCachePutGet(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("acme"); ok {
		t.Error("empty cache returned a score")
	}

	c.Put(cachedScore("acme", 85, "hot"))
	s, ok := c.Get("acme")
	if !ok {
		t.Fatal("expected cached score")
	}
	if s.OverallScore != 85 {
		t.Errorf("score = %f, want 85", s.OverallScore)
	}

	// Get returns a copy; mutating it doesn't touch the cache.
	s.OverallScore = 1
	again, _ := c.Get("acme")
	if again.OverallScore != 85 {
		t.Error("cache contents mutated through a read copy")
	}
}

func TestCacheHydrate(t *testing.T) {
	c := NewCache()
	c.Put(cachedScore("stale", 10, "cold"))

	c.Hydrate([]store.EntityScore{
		cachedScore("acme", 85, "hot"),
		cachedScore("globex", 65, "warm"),
	})

	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("hydrate should replace previous contents")
	}
}

func TestCacheListByCategory(t *testing.T) {
	c := NewCache()
	c.Put(cachedScore("globex", 85, "hot"))
	c.Put(cachedScore("acme", 92, "hot"))
	c.Put(cachedScore("initech", 85, "hot")) // tie with globex
	c.Put(cachedScore("hooli", 65, "warm"))

	hot := c.ListByCategory("hot", 10, 0)
	if len(hot) != 3 {
		t.Fatalf("expected 3 hot, got %d", len(hot))
	}
	want := []string{"acme", "globex", "initech"}
	for i, id := range want {
		if hot[i].EntityID != id {
			t.Errorf("position %d = %q, want %q", i, hot[i].EntityID, id)
		}
	}

	// Offset past the end.
	if out := c.ListByCategory("hot", 10, 5); out != nil {
		t.Errorf("expected nil for offset past end, got %v", out)
	}

	// Limit + offset pagination.
	page := c.ListByCategory("hot", 1, 1)
	if len(page) != 1 || page[0].EntityID != "globex" {
		t.Errorf("page = %+v, want globex", page)
	}
}
