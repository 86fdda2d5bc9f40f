package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "signal_events: append-only signal ledger",
		SQL: `
CREATE TABLE signal_events (
    id           TEXT PRIMARY KEY,
    entity_type  TEXT NOT NULL CHECK (entity_type IN ('company', 'contact')),
    entity_id    TEXT NOT NULL,
    company_id   TEXT,
    signal_type  TEXT NOT NULL,
    confidence   REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
    detected_at  INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'expired', 'dismissed')),
    created_at   INTEGER NOT NULL
);

-- Scoring hot path: all active signals for one entity.
CREATE INDEX idx_signals_entity_status ON signal_events(entity_id, status);
-- Company rollup: active contact signals tagged with a parent company.
CREATE INDEX idx_signals_company      ON signal_events(company_id, status);
-- Recent-signals listing.
CREATE INDEX idx_signals_detected     ON signal_events(entity_id, detected_at DESC);
`,
	},
	{
		Version:     2,
		Description: "entity_scores: materialized score per entity",
		SQL: `
CREATE TABLE entity_scores (
    entity_id             TEXT PRIMARY KEY,
    entity_type           TEXT NOT NULL CHECK (entity_type IN ('company', 'contact')),
    overall_score         REAL NOT NULL DEFAULT 0,
    intent_category       TEXT NOT NULL DEFAULT 'cold',
    score_trend           TEXT NOT NULL DEFAULT 'stable',
    strongest_signal_type TEXT,
    active_signal_count   INTEGER NOT NULL DEFAULT 0,
    previous_score        REAL NOT NULL DEFAULT 0,
    last_recomputed_at    INTEGER NOT NULL
);

CREATE INDEX idx_scores_category ON entity_scores(intent_category, overall_score DESC, entity_id ASC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
