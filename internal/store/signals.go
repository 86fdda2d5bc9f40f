package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Signal statuses. Transitions are forward-only: active may become expired or
// dismissed; both are terminal.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusDismissed = "dismissed"
)

// Entity types.
const (
	EntityCompany = "company"
	EntityContact = "contact"
)

// SignalEvent is one row in the signal ledger. Everything except Status is
// immutable once written.
type SignalEvent struct {
	ID         string
	EntityType string
	EntityID   string
	CompanyID  string // parent company for contact signals; empty otherwise
	SignalType string
	Confidence float64
	DetectedAt int64 // unix ms
	Status     string
	CreatedAt  int64
}

// EntityRef identifies one scored entity.
type EntityRef struct {
	EntityID   string
	EntityType string
}

const signalCols = "id, entity_type, entity_id, company_id, signal_type, confidence, detected_at, status, created_at"

// Append inserts a new active signal event. Mints an ID when the caller
// didn't provide one.
func (db *DB) Append(ctx context.Context, ev *SignalEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO signal_events (id, entity_type, entity_id, company_id, signal_type, confidence, detected_at, status, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, 'active', ?)
	`, ev.ID, ev.EntityType, ev.EntityID, ev.CompanyID, ev.SignalType, ev.Confidence, ev.DetectedAt, now)
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	ev.Status = StatusActive
	ev.CreatedAt = now
	return nil
}

// GetSignal returns a signal event by ID, or nil if not found.
func (db *DB) GetSignal(ctx context.Context, id string) (*SignalEvent, error) {
	row := db.QueryRowContext(ctx, `SELECT `+signalCols+` FROM signal_events WHERE id = ?`, id)
	ev, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return ev, nil
}

// ListActive returns all active signals for an entity.
func (db *DB) ListActive(ctx context.Context, entityID string) ([]SignalEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+signalCols+` FROM signal_events
		WHERE entity_id = ? AND status = 'active'
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// ListActiveContactSignals returns active contact-level signals rolled up to
// the given company. The company's own signals are not included.
func (db *DB) ListActiveContactSignals(ctx context.Context, companyID string) ([]SignalEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+signalCols+` FROM signal_events
		WHERE company_id = ? AND entity_type = 'contact' AND status = 'active'
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list contact rollup: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// ListRecent returns the most recent signals for an entity regardless of
// status, ordered by detected_at descending. Expired and dismissed events
// stay visible here for audit and trend history.
func (db *DB) ListRecent(ctx context.Context, entityID string, limit int) ([]SignalEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+signalCols+` FROM signal_events
		WHERE entity_id = ?
		ORDER BY detected_at DESC
		LIMIT ?
	`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// Expire transitions an active signal to expired. Expiring a signal that is
// no longer active is a no-op, which keeps the sweep idempotent.
func (db *DB) Expire(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE signal_events SET status = 'expired'
		WHERE id = ? AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf("expire signal: %w", err)
	}
	return nil
}

// Dismiss transitions an active signal to dismissed. Returns false when the
// signal was not active (already expired or dismissed — terminal states).
func (db *DB) Dismiss(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE signal_events SET status = 'dismissed'
		WHERE id = ? AND status = 'active'
	`, id)
	if err != nil {
		return false, fmt.Errorf("dismiss signal: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// EntitiesWithActiveSignals returns every entity the sweep must visit: any
// entity that owns an active signal, plus any company an active contact
// signal rolls up to.
func (db *DB) EntitiesWithActiveSignals(ctx context.Context) ([]EntityRef, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT entity_id, entity_type FROM signal_events WHERE status = 'active'
		UNION
		SELECT DISTINCT company_id, 'company' FROM signal_events
		WHERE status = 'active' AND company_id IS NOT NULL
		ORDER BY entity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("sweep scan: %w", err)
	}
	defer rows.Close()

	var refs []EntityRef
	for rows.Next() {
		var r EntityRef
		if err := rows.Scan(&r.EntityID, &r.EntityType); err != nil {
			return nil, fmt.Errorf("scan entity ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*SignalEvent, error) {
	var ev SignalEvent
	var companyID sql.NullString
	if err := row.Scan(&ev.ID, &ev.EntityType, &ev.EntityID, &companyID,
		&ev.SignalType, &ev.Confidence, &ev.DetectedAt, &ev.Status, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.CompanyID = companyID.String
	return &ev, nil
}

func scanSignals(rows *sql.Rows) ([]SignalEvent, error) {
	var events []SignalEvent
	for rows.Next() {
		ev, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
