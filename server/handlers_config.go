package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// configSafeKeys are the non-secret runtime knobs exposed and mutable
// through /config. Twitch credentials and DSNs never appear here.
var configSafeKeys = map[string]bool{
	"LOG_LEVEL":                  true,
	"LOG_FORMAT":                 true,
	"ANALYSIS_WINDOW_SEC":        true,
	"ANALYSIS_CLIP_DURATION_SEC": true,
	"ANALYSIS_MIN_GAP_SEC":       true,
	"ANALYSIS_THRESHOLD_FACTOR":  true,
	"ANALYSIS_MAX_HIGHLIGHTS":    true,
	"ANALYSIS_MAX_PAGES":         true,
	"ANALYSIS_TIMEOUT_MS":        true,
}

// HandleConfig handles GET and PUT requests for the safe analysis
// configuration keys. GET merges the kv override table over the process
// environment; PUT persists an override into kv for the next request to pick
// up without a restart.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := map[string]string{}
		for k := range configSafeKeys {
			var v string
			_ = h.db.QueryRowContext(r.Context(), `SELECT value FROM kv WHERE key=$1`, "cfg:"+k).Scan(&v)
			if v == "" {
				v = os.Getenv(k)
			}
			if v != "" {
				out[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPut:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		for k, v := range body {
			if !configSafeKeys[k] {
				continue
			}
			if _, err := h.db.ExecContext(
				r.Context(),
				`INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW()) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
				"cfg:"+k,
				strings.TrimSpace(v),
			); err != nil {
				slog.Error("failed to update config", slog.String("key", k), slog.Any("err", err))
				http.Error(w, "failed to update config", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
