package taxonomy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validEntry() Entry {
	return Entry{
		SignalType:   "funding_round",
		Category:     GrowthExpansion,
		BaseWeight:   90,
		HalfLifeDays: 30,
		MaxAgeDays:   365,
		MinValue:     10,
	}
}

func TestLookup(t *testing.T) {
	reg, err := New([]Entry{validEntry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e, err := reg.Lookup("funding_round")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.BaseWeight != 90 {
		t.Errorf("base_weight = %d, want 90", e.BaseWeight)
	}

	_, err = reg.Lookup("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Entry)
	}{
		{"missing type", func(e *Entry) { e.SignalType = "" }},
		{"unknown category", func(e *Entry) { e.Category = "vibes" }},
		{"negative weight", func(e *Entry) { e.BaseWeight = -1 }},
		{"weight over 100", func(e *Entry) { e.BaseWeight = 101 }},
		{"zero half life", func(e *Entry) { e.HalfLifeDays = 0 }},
		{"max age under half life", func(e *Entry) { e.MaxAgeDays = 10; e.HalfLifeDays = 20 }},
		{"min value over weight", func(e *Entry) { e.MinValue = 95 }},
		{"negative min value", func(e *Entry) { e.MinValue = -1 }},
	}
	for _, c := range cases {
		e := validEntry()
		c.mutate(&e)
		if err := e.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Entry{validEntry(), validEntry()})
	if err == nil {
		t.Fatal("expected duplicate entry error")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty taxonomy")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	catalog := `
[[signal]]
type = "demo_request"
category = "direct_engagement"
base_weight = 95
half_life_days = 7.0
max_age_days = 60
min_value = 10.0

[[signal]]
type = "pricing_page_visit"
category = "direct_engagement"
base_weight = 80
half_life_days = 3.0
max_age_days = 30
min_value = 0.0
`
	if err := os.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("len = %d, want 2", reg.Len())
	}

	e, err := reg.Lookup("demo_request")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.HalfLifeDays != 7 {
		t.Errorf("half_life_days = %g, want 7", e.HalfLifeDays)
	}
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	catalog := `
[[signal]]
type = "broken"
category = "direct_engagement"
base_weight = 50
half_life_days = 0.0
max_age_days = 30
min_value = 0.0
`
	if err := os.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for zero half-life")
	}
}

func TestDefaultCatalogValid(t *testing.T) {
	reg := DefaultCatalog()
	if reg.Len() == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, e := range reg.Entries() {
		if err := e.Validate(); err != nil {
			t.Errorf("default entry %s: %v", e.SignalType, err)
		}
	}
}

func TestEntriesSorted(t *testing.T) {
	reg := DefaultCatalog()
	entries := reg.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].SignalType >= entries[i].SignalType {
			t.Fatalf("entries not sorted: %s before %s", entries[i-1].SignalType, entries[i].SignalType)
		}
	}
}
