package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/driftline/intentd/internal/config"
	"github.com/driftline/intentd/internal/scoring"
	"github.com/driftline/intentd/internal/store"
	"github.com/driftline/intentd/internal/taxonomy"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg, err := taxonomy.New([]taxonomy.Entry{
		{SignalType: "funding_round", Category: taxonomy.GrowthExpansion, BaseWeight: 90, HalfLifeDays: 7, MaxAgeDays: 30, MinValue: 10},
		{SignalType: "demo_request", Category: taxonomy.DirectEngagement, BaseWeight: 95, HalfLifeDays: 7, MaxAgeDays: 60, MinValue: 10},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	cache := scoring.NewCache()
	eng := scoring.New(db, reg, cache, config.Default().Scoring, nil)
	eng.Now = func() time.Time { return testBase }

	return New(db, eng, cache, "test")
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func ingestBody(entityType, entityID, signalType string) string {
	return fmt.Sprintf(`{"entity_type":%q,"entity_id":%q,"signal_type":%q,"confidence":1.0,"detected_at":%q}`,
		entityType, entityID, signalType, testBase.Format(time.RFC3339))
}

func TestIngestSignal(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "funding_round"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp struct {
		SignalID string    `json:"signal_id"`
		Score    scoreJSON `json:"score"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SignalID == "" {
		t.Error("expected signal_id in response")
	}
	if resp.Score.OverallScore != 90 {
		t.Errorf("overall_score = %f, want 90", resp.Score.OverallScore)
	}
	if resp.Score.IntentCategory != "hot" {
		t.Errorf("intent_category = %q, want hot", resp.Score.IntentCategory)
	}
	if resp.Score.StrongestSignalType != "funding_round" {
		t.Errorf("strongest = %q, want funding_round", resp.Score.StrongestSignalType)
	}
}

func TestIngestUnknownSignalType(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "astrology_reading"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "unknown_signal_type" {
		t.Errorf("error = %q, want unknown_signal_type", resp["error"])
	}
}

func TestIngestInvalidConfidence(t *testing.T) {
	srv := testServer(t)

	body := `{"entity_type":"company","entity_id":"acme","signal_type":"funding_round","confidence":1.5}`
	w := do(t, srv, "POST", "/api/signals", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "invalid_confidence" {
		t.Errorf("error = %q, want invalid_confidence", resp["error"])
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals", "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIngestMissingFields(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals", `{"entity_type":"company"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIngestBadTimestamp(t *testing.T) {
	srv := testServer(t)

	body := `{"entity_type":"company","entity_id":"acme","signal_type":"funding_round","confidence":1.0,"detected_at":"yesterday"}`
	w := do(t, srv, "POST", "/api/signals", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetScoreNotFound(t *testing.T) {
	srv := testServer(t)

	// A never-scored entity is 404, not a zero score.
	w := do(t, srv, "GET", "/api/scores/fresh", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetScore(t *testing.T) {
	srv := testServer(t)

	do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "funding_round"))

	w := do(t, srv, "GET", "/api/scores/acme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp scoreJSON
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.EntityID != "acme" {
		t.Errorf("entity_id = %q, want acme", resp.EntityID)
	}
	if resp.OverallScore != 90 {
		t.Errorf("overall_score = %f, want 90", resp.OverallScore)
	}
}

func TestListScoresByCategory(t *testing.T) {
	srv := testServer(t)

	do(t, srv, "POST", "/api/signals", ingestBody("company", "globex", "funding_round")) // 90
	do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "demo_request"))    // 95

	w := do(t, srv, "GET", "/api/scores?category=hot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Count  int         `json:"count"`
		Scores []scoreJSON `json:"scores"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Scores[0].EntityID != "acme" || resp.Scores[1].EntityID != "globex" {
		t.Errorf("order = %q, %q; want acme, globex", resp.Scores[0].EntityID, resp.Scores[1].EntityID)
	}
}

func TestListScoresInvalidCategory(t *testing.T) {
	srv := testServer(t)

	for _, q := range []string{"", "?category=lukewarm"} {
		w := do(t, srv, "GET", "/api/scores"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET /api/scores%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

func TestRecentSignals(t *testing.T) {
	srv := testServer(t)

	do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "funding_round"))
	do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "demo_request"))

	w := do(t, srv, "GET", "/api/signals/acme/recent?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Count   int          `json:"count"`
		Signals []signalJSON `json:"signals"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1 (limit)", resp.Count)
	}

	// No signals is an empty list, not an error.
	w = do(t, srv, "GET", "/api/signals/nobody/recent", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestDismissSignal(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals", ingestBody("company", "acme", "funding_round"))
	var created struct {
		SignalID string `json:"signal_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	w = do(t, srv, "POST", "/api/signals/"+created.SignalID+"/dismiss", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp struct {
		Status string    `json:"status"`
		Score  scoreJSON `json:"score"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "dismissed" {
		t.Errorf("status = %q, want dismissed", resp.Status)
	}
	if resp.Score.OverallScore != 0 {
		t.Errorf("score after dismissing only signal = %f, want 0", resp.Score.OverallScore)
	}
	if resp.Score.IntentCategory != "cold" {
		t.Errorf("category = %q, want cold", resp.Score.IntentCategory)
	}

	// Terminal: a second dismiss conflicts.
	w = do(t, srv, "POST", "/api/signals/"+created.SignalID+"/dismiss", "")
	if w.Code != http.StatusConflict {
		t.Errorf("second dismiss: status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestDismissUnknownSignal(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/signals/no-such-id/dismiss", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["db"] != true {
		t.Errorf("db = %v, want true", resp["db"])
	}
	if schema, ok := resp["schema"].(float64); !ok || schema < 2 {
		t.Errorf("schema = %v, want the migrated version", resp["schema"])
	}
}
