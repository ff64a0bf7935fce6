// File: internal/handlers/health_handler.go
package handlers

import "net/http"

// SessionCounter reports how many sessions are open.
type SessionCounter interface {
	Len() int
}

// Health reports liveness together with the number of open sessions.
func Health(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": sessions.Len(),
		})
	}
}
