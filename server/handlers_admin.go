package server

import (
	"encoding/json"
	"net/http"
)

// HandleAdminMonitor reports the number of in-flight analyses and the
// cumulative scan-ledger total, protected by the same admin auth middleware
// that guards the rest of /admin/.
func (h *Handlers) HandleAdminMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	total, err := h.scans.TotalScans(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"in_flight_analyses": h.inFlight.Load(),
		"total_scans":        total,
	})
}
