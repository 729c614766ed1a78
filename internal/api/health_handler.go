package api

import (
	"net/http"

	"chat-relay/internal/tasks"
	"chat-relay/internal/types"
)

// HealthHandler GET /healthz
//
// Answers 503 while the store monitor reports the backend unreachable, so
// load balancers can drain a degraded instance instead of hanging on it.
func HealthHandler(monitor *tasks.HealthMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !monitor.Healthy() {
			writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
	}
}
