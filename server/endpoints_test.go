package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/vod-highlights/testutil"
	"github.com/onnwee/vod-highlights/twitchapi"
	"github.com/onnwee/vod-highlights/vod"
)

func TestCORS(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		t.Errorf("OPTIONS request status = %d, want %d or %d", resp.StatusCode, http.StatusNoContent, http.StatusOK)
	}

	headers := []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
	}
	for _, h := range headers {
		if resp.Header.Get(h) == "" {
			t.Errorf("missing CORS header: %s", h)
		}
	}
}

func TestHealthzEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("healthz returned empty response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("metrics returned empty response")
	}
}

func TestConfigEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	t.Setenv("ANALYSIS_WINDOW_SEC", "45")

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("config status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var cfg map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("failed to decode config response: %v", err)
	}

	if cfg["ANALYSIS_WINDOW_SEC"] != "45" {
		t.Errorf("ANALYSIS_WINDOW_SEC = %v, want 45", cfg["ANALYSIS_WINDOW_SEC"])
	}
}

func TestConfigEndpointPutRejectsUnsafeKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	body, _ := json.Marshal(map[string]string{
		"ANALYSIS_MIN_GAP_SEC": "60",
		"DB_DSN":               "should-not-be-settable",
	})
	req := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d, body=%s", w.Code, w.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/config", nil)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	var cfg map[string]interface{}
	if err := json.NewDecoder(w2.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg["ANALYSIS_MIN_GAP_SEC"] != "60" {
		t.Errorf("ANALYSIS_MIN_GAP_SEC = %v, want 60", cfg["ANALYSIS_MIN_GAP_SEC"])
	}
	if _, ok := cfg["DB_DSN"]; ok {
		t.Error("DB_DSN should never be exposed or settable via /config")
	}
}

func TestAdminMonitorEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	req := httptest.NewRequest(http.MethodGet, "/admin/monitor", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin monitor status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode monitor response: %v", err)
	}

	for _, field := range []string{"in_flight_analyses", "total_scans"} {
		if _, ok := status[field]; !ok {
			t.Errorf("monitor response missing field: %s", field)
		}
	}
}

func TestAnalyzeEndpointRejectsInvalidInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	body, _ := json.Marshal(map[string]string{"url": ""})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty url, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected non-empty error message")
	}
}

func TestAnalyzeEndpointSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mock := testutil.NewMockTwitchServer(t)
	mock.MockCommentPage(5, []string{"lol that's amazing", "hahaha no way", "POG what a play"}, "")

	orchestrator := &vod.Orchestrator{
		Feed: &twitchapi.CommentFeedClient{ClientID: "test-client-id", Endpoint: mock.URL},
	}
	handler := NewMux(context.Background(), db, orchestrator, vod.Options{})

	body, _ := json.Marshal(map[string]string{"url": "123456789"})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp vod.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode analysis response: %v", err)
	}
	if resp.VideoID != "123456789" {
		t.Errorf("videoId = %q, want 123456789", resp.VideoID)
	}
	if resp.TotalMessages == 0 {
		t.Error("expected totalMessages > 0")
	}
}

func TestAnalyzeEndpointNonexistentVideoPropagatesNoData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mock := testutil.NewMockTwitchServer(t)
	mock.MockCommentPage(0, nil, "")

	orchestrator := &vod.Orchestrator{
		Feed: &twitchapi.CommentFeedClient{ClientID: "test-client-id", Endpoint: mock.URL},
	}
	handler := NewMux(context.Background(), db, orchestrator, vod.Options{})

	body, _ := json.Marshal(map[string]string{"url": "999999999"})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty comment feed, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestAnalyzeEndpointRejectsNonPost(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := newTestMux(t, db)

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
