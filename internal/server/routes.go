package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/driftline/intentd/internal/decay"
	"github.com/driftline/intentd/internal/scoring"
	"github.com/driftline/intentd/internal/store"
	"github.com/go-chi/chi/v5"
)

type scoreJSON struct {
	EntityID            string  `json:"entity_id"`
	EntityType          string  `json:"entity_type"`
	OverallScore        float64 `json:"overall_score"`
	IntentCategory      string  `json:"intent_category"`
	ScoreTrend          string  `json:"score_trend"`
	StrongestSignalType string  `json:"strongest_signal_type,omitempty"`
	ActiveSignalCount   int     `json:"active_signal_count"`
	LastRecomputedAt    string  `json:"last_recomputed_at"`
}

type signalJSON struct {
	ID         string  `json:"id"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	CompanyID  string  `json:"company_id,omitempty"`
	SignalType string  `json:"signal_type"`
	Confidence float64 `json:"confidence"`
	DetectedAt string  `json:"detected_at"`
	Status     string  `json:"status"`
}

func toScoreJSON(s *store.EntityScore) scoreJSON {
	return scoreJSON{
		EntityID:            s.EntityID,
		EntityType:          s.EntityType,
		OverallScore:        s.OverallScore,
		IntentCategory:      s.IntentCategory,
		ScoreTrend:          s.ScoreTrend,
		StrongestSignalType: s.StrongestSignalType,
		ActiveSignalCount:   s.ActiveSignalCount,
		LastRecomputedAt:    time.UnixMilli(s.LastRecomputedAt).UTC().Format(time.RFC3339),
	}
}

func toSignalJSON(ev *store.SignalEvent) signalJSON {
	return signalJSON{
		ID:         ev.ID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		CompanyID:  ev.CompanyID,
		SignalType: ev.SignalType,
		Confidence: ev.Confidence,
		DetectedAt: time.UnixMilli(ev.DetectedAt).UTC().Format(time.RFC3339),
		Status:     ev.Status,
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType string  `json:"entity_type"`
		EntityID   string  `json:"entity_id"`
		CompanyID  string  `json:"company_id"`
		SignalType string  `json:"signal_type"`
		Confidence float64 `json:"confidence"`
		DetectedAt string  `json:"detected_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}
	if req.EntityID == "" || req.SignalType == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "entity_id and signal_type required")
		return
	}

	detectedAt := time.Now()
	if req.DetectedAt != "" {
		var err error
		detectedAt, err = time.Parse(time.RFC3339, req.DetectedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "detected_at must be RFC3339")
			return
		}
	}

	ev := &store.SignalEvent{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		CompanyID:  req.CompanyID,
		SignalType: req.SignalType,
		Confidence: req.Confidence,
		DetectedAt: detectedAt.UnixMilli(),
	}

	snapshot, err := s.engine.OnIngest(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrUnknownSignalType):
			writeError(w, http.StatusBadRequest, "unknown_signal_type", err.Error())
		case errors.Is(err, scoring.ErrInvalidConfidence):
			writeError(w, http.StatusBadRequest, "invalid_confidence", err.Error())
		case errors.Is(err, scoring.ErrInvalidEntityType):
			writeError(w, http.StatusBadRequest, "invalid_entity_type", err.Error())
		case errors.Is(err, scoring.ErrRecomputeTimeout):
			writeError(w, http.StatusServiceUnavailable, "recompute_timeout", err.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"signal_id": ev.ID,
		"score":     toScoreJSON(snapshot),
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	signalID := chi.URLParam(r, "signalID")

	snapshot, err := s.engine.DismissSignal(r.Context(), signalID)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, scoring.ErrSignalNotActive):
			writeError(w, http.StatusConflict, "signal_not_active", err.Error())
		case errors.Is(err, scoring.ErrRecomputeTimeout):
			writeError(w, http.StatusServiceUnavailable, "recompute_timeout", err.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "dismissed",
		"score":  toScoreJSON(snapshot),
	})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	// Never-scored entities return 404: a fresh entity without signals is a
	// different state than one that decayed to cold.
	score, ok := s.cache.Get(entityID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no score for entity "+entityID)
		return
	}
	writeJSON(w, http.StatusOK, toScoreJSON(&score))
}

var validIntentCategories = map[string]bool{
	decay.CategoryHot:     true,
	decay.CategoryWarm:    true,
	decay.CategoryEngaged: true,
	decay.CategoryAware:   true,
	decay.CategoryCold:    true,
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if !validIntentCategories[category] {
		writeError(w, http.StatusBadRequest, "invalid_category", "category must be one of hot, warm, engaged, aware, cold")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	scores := s.cache.ListByCategory(category, limit, offset)
	out := make([]scoreJSON, len(scores))
	for i := range scores {
		out[i] = toScoreJSON(&scores[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"count":    len(out),
		"scores":   out,
	})
}

func (s *Server) handleRecentSignals(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.db.ListRecent(r.Context(), entityID, limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}

	out := make([]signalJSON, len(events))
	for i := range events {
		out[i] = toSignalJSON(&events[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"count":     len(out),
		"signals":   out,
	})
}
