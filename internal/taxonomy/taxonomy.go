package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Category is the fixed set of signal categories.
type Category string

const (
	GrowthExpansion     Category = "growth_expansion"
	Sustainability      Category = "sustainability"
	WorkplaceExperience Category = "workplace_experience"
	EmployeeWellbeing   Category = "employee_wellbeing"
	DirectEngagement    Category = "direct_engagement"
	Operational         Category = "operational"
	Technology          Category = "technology"
	Relationship        Category = "relationship"
)

var validCategories = map[Category]bool{
	GrowthExpansion:     true,
	Sustainability:      true,
	WorkplaceExperience: true,
	EmployeeWellbeing:   true,
	DirectEngagement:    true,
	Operational:         true,
	Technology:          true,
	Relationship:        true,
}

// ErrNotFound is returned by Lookup for an unregistered signal type.
var ErrNotFound = errors.New("signal type not in taxonomy")

// Entry describes one signal type: its category, base weight and decay curve.
// Entries are immutable once loaded.
type Entry struct {
	SignalType   string   `toml:"type"`
	Category     Category `toml:"category"`
	BaseWeight   int      `toml:"base_weight"`    // max contribution at age zero, 0-100
	HalfLifeDays float64  `toml:"half_life_days"` // time for contribution to halve
	MaxAgeDays   int      `toml:"max_age_days"`   // hard cliff; zero contribution past this
	MinValue     float64  `toml:"min_value"`      // pre-cliff floor on the decayed value
}

// Registry is the immutable signal-type catalog. Built once at startup.
type Registry struct {
	entries map[string]Entry
}

type catalogFile struct {
	Signals []Entry `toml:"signal"`
}

// Load reads a TOML signal catalog from disk and validates every entry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return New(file.Signals)
}

// New builds a Registry from entries, rejecting invalid or duplicate ones.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("signal %q: %w", e.SignalType, err)
		}
		if _, dup := r.entries[e.SignalType]; dup {
			return nil, fmt.Errorf("signal %q: duplicate entry", e.SignalType)
		}
		r.entries[e.SignalType] = e
	}
	if len(r.entries) == 0 {
		return nil, errors.New("taxonomy has no signal entries")
	}
	return r, nil
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	if e.SignalType == "" {
		return errors.New("missing type")
	}
	if !validCategories[e.Category] {
		return fmt.Errorf("unknown category %q", e.Category)
	}
	if e.BaseWeight < 0 || e.BaseWeight > 100 {
		return fmt.Errorf("base_weight %d outside 0-100", e.BaseWeight)
	}
	if e.HalfLifeDays <= 0 {
		return fmt.Errorf("half_life_days %g must be positive", e.HalfLifeDays)
	}
	if float64(e.MaxAgeDays) < e.HalfLifeDays {
		return fmt.Errorf("max_age_days %d must be >= half_life_days %g", e.MaxAgeDays, e.HalfLifeDays)
	}
	if e.MinValue < 0 || e.MinValue > float64(e.BaseWeight) {
		return fmt.Errorf("min_value %g outside 0-base_weight", e.MinValue)
	}
	return nil
}

// Lookup returns the entry for a signal type, or ErrNotFound.
func (r *Registry) Lookup(signalType string) (Entry, error) {
	e, ok := r.entries[signalType]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, signalType)
	}
	return e, nil
}

// Len returns the number of registered signal types.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns all entries sorted by signal type.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalType < out[j].SignalType })
	return out
}
