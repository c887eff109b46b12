package http

import (
	"net/http"
	"time"
)

type healthWire struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_seconds"`
}

// Health handles GET /health, unauthenticated (§6.1).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthWire{
		Status:    "ok",
		UptimeSec: int64(time.Since(h.startedAt).Seconds()),
	})
}
