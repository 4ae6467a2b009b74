package handler

import "net/http"

// StatusSource reports the last known reachability of each backend.
type StatusSource interface {
	Snapshot() map[string]bool
}

type statusResponse struct {
	Status   int             `json:"status"`
	Backends map[string]bool `json:"backends"`
}

// StatusHandler serves GET /api/status.
func StatusHandler(source StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: 1, Backends: source.Snapshot()})
	}
}
