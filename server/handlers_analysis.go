package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/vod-highlights/vod"
)

// analyzeRequest is the POST /analyze request body.
type analyzeRequest struct {
	URL     string `json:"url"`
	Options struct {
		WindowSec         int     `json:"windowSec"`
		ClipDurationSec   int     `json:"clipDurationSec"`
		MinGapSec         int     `json:"minGapSec"`
		ThresholdFactor   float64 `json:"thresholdFactor"`
		MaxHighlights     int     `json:"maxHighlights"`
		MaxPages          int     `json:"maxPages"`
		AnalysisTimeoutMs int     `json:"analysisTimeoutMs"`
	} `json:"options"`
}

// errorResponse mirrors the error shape named in the external interfaces:
// a human-readable message and an HTTP-style status category.
type errorResponse struct {
	Error  string              `json:"error"`
	Status vod.StatusCategory `json:"status"`
}

// HandleAnalyze runs chat-based highlight analysis against a VOD URL or bare
// video id, per-IP rate limited at the mux level.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnalysisError(w, &vod.AnalysisError{Status: vod.StatusInvalidInput, Err: errors.New("invalid json body")})
		return
	}

	opts := h.defaults
	if req.Options.WindowSec > 0 {
		opts.WindowSec = req.Options.WindowSec
	}
	if req.Options.ClipDurationSec > 0 {
		opts.ClipDurationSec = req.Options.ClipDurationSec
	}
	if req.Options.MinGapSec > 0 {
		opts.MinGapSec = req.Options.MinGapSec
	}
	if req.Options.ThresholdFactor > 0 {
		opts.ThresholdFactor = req.Options.ThresholdFactor
	}
	if req.Options.MaxHighlights > 0 {
		opts.MaxHighlights = req.Options.MaxHighlights
	}
	if req.Options.MaxPages > 0 {
		opts.MaxPages = req.Options.MaxPages
	}
	if req.Options.AnalysisTimeoutMs > 0 {
		opts.AnalysisTimeoutMs = req.Options.AnalysisTimeoutMs
	}

	h.inFlight.Add(1)
	defer h.inFlight.Add(-1)

	resp, err := h.orchestrator.Analyze(r.Context(), req.URL, opts)
	if err != nil {
		var aerr *vod.AnalysisError
		if errors.As(err, &aerr) {
			writeAnalysisError(w, aerr)
			return
		}
		writeAnalysisError(w, &vod.AnalysisError{Status: vod.StatusInternal, Err: err})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeAnalysisError(w http.ResponseWriter, aerr *vod.AnalysisError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(aerr.Status.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorResponse{Error: aerr.Error(), Status: aerr.Status})
}
