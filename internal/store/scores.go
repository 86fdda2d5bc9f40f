package store

import (
	"context"
	"database/sql"
	"fmt"
)

// EntityScore is the materialized scoring result for one entity. Written only
// by the scoring engine; everything else reads it.
type EntityScore struct {
	EntityID            string
	EntityType          string
	OverallScore        float64
	IntentCategory      string
	ScoreTrend          string
	StrongestSignalType string // empty when no active signals
	ActiveSignalCount   int
	PreviousScore       float64
	LastRecomputedAt    int64 // unix ms
}

const scoreCols = "entity_id, entity_type, overall_score, intent_category, score_trend, strongest_signal_type, active_signal_count, previous_score, last_recomputed_at"

// SaveScore upserts an entity's score row.
func (db *DB) SaveScore(ctx context.Context, s *EntityScore) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entity_scores (entity_id, entity_type, overall_score, intent_category, score_trend,
			strongest_signal_type, active_signal_count, previous_score, last_recomputed_at)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			overall_score = excluded.overall_score,
			intent_category = excluded.intent_category,
			score_trend = excluded.score_trend,
			strongest_signal_type = excluded.strongest_signal_type,
			active_signal_count = excluded.active_signal_count,
			previous_score = excluded.previous_score,
			last_recomputed_at = excluded.last_recomputed_at
	`, s.EntityID, s.EntityType, s.OverallScore, s.IntentCategory, s.ScoreTrend,
		s.StrongestSignalType, s.ActiveSignalCount, s.PreviousScore, s.LastRecomputedAt)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// GetScore returns an entity's score row, or nil if the entity has never been
// scored. Never-scored and decayed-to-cold are distinct states.
func (db *DB) GetScore(ctx context.Context, entityID string) (*EntityScore, error) {
	row := db.QueryRowContext(ctx, `SELECT `+scoreCols+` FROM entity_scores WHERE entity_id = ?`, entityID)
	s, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}
	return s, nil
}

// ListScoresByCategory returns score rows in one intent category ordered by
// overall_score descending, entity_id ascending as the stable tie-break.
func (db *DB) ListScoresByCategory(ctx context.Context, category string, limit, offset int) ([]EntityScore, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+scoreCols+` FROM entity_scores
		WHERE intent_category = ?
		ORDER BY overall_score DESC, entity_id ASC
		LIMIT ? OFFSET ?
	`, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list scores by category: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

// AllScores returns every score row; used to hydrate the in-memory cache at
// startup.
func (db *DB) AllScores(ctx context.Context) ([]EntityScore, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+scoreCols+` FROM entity_scores`)
	if err != nil {
		return nil, fmt.Errorf("all scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func scanScore(row rowScanner) (*EntityScore, error) {
	var s EntityScore
	var strongest sql.NullString
	if err := row.Scan(&s.EntityID, &s.EntityType, &s.OverallScore, &s.IntentCategory, &s.ScoreTrend,
		&strongest, &s.ActiveSignalCount, &s.PreviousScore, &s.LastRecomputedAt); err != nil {
		return nil, err
	}
	s.StrongestSignalType = strongest.String
	return &s, nil
}

func scanScores(rows *sql.Rows) ([]EntityScore, error) {
	var scores []EntityScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, *s)
	}
	return scores, rows.Err()
}
