// Package decay holds the pure scoring math: per-signal contribution under
// exponential half-life decay, intent-category classification, and trend.
package decay

import (
	"math"

	"github.com/driftline/intentd/internal/taxonomy"
)

// Intent categories, ordered hottest first.
const (
	CategoryHot     = "hot"
	CategoryWarm    = "warm"
	CategoryEngaged = "engaged"
	CategoryAware   = "aware"
	CategoryCold    = "cold"
)

// Trend values.
const (
	TrendRising  = "rising"
	TrendStable  = "stable"
	TrendFalling = "falling"
)

// Contribution computes a signal's current score contribution.
//
// Past the max-age cliff the contribution is exactly zero. Before it, the base
// weight halves every half-life, floored at min_value, then scaled by
// confidence. Negative ages (detected_at in the future relative to the
// recompute clock) are treated as age zero; the caller logs those.
func Contribution(entry taxonomy.Entry, ageDays, confidence float64) float64 {
	if ageDays >= float64(entry.MaxAgeDays) {
		return 0
	}
	if ageDays < 0 {
		ageDays = 0
	}
	raw := float64(entry.BaseWeight) * math.Exp2(-ageDays/entry.HalfLifeDays)
	if raw < entry.MinValue {
		raw = entry.MinValue
	}
	return raw * confidence
}

// Classify maps an overall score to its intent category.
// Boundaries are inclusive on the lower edge: exactly 80 is hot.
func Classify(score float64) string {
	switch {
	case score >= 80:
		return CategoryHot
	case score >= 60:
		return CategoryWarm
	case score >= 40:
		return CategoryEngaged
	case score >= 20:
		return CategoryAware
	default:
		return CategoryCold
	}
}

// Trend compares the current score to the previous recompute's score.
// Deltas within threshold are "stable" so floating-point noise cannot flap
// the trend between ticks.
func Trend(previous, current, threshold float64) string {
	delta := current - previous
	switch {
	case delta > threshold:
		return TrendRising
	case delta < -threshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// Clamp bounds a score to [min, max].
func Clamp(score, min, max float64) float64 {
	if score < min {
		return min
	}
	if score > max {
		return max
	}
	return score
}
