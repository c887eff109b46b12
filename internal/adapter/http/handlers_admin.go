package http

import (
	"net/http"
	"time"
)

// FlushMemories handles POST /api/v1/admin/flush/memories: deletes
// every memory in the store. Intended for test/staging resets, never
// exposed without AdminBasicAuth + API key (§6.1).
func (h *Handlers) FlushMemories(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.AllMemories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	deleted := 0
	for _, m := range all {
		if err := h.store.Delete(r.Context(), m.MemoryID); err != nil {
			writeDomainError(w, err)
			return
		}
		deleted++
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// RecreateIndexes handles POST /api/v1/admin/recreate/indexes: rebuilds
// the in-memory vector index from the durable rows (§7's index-missing
// recovery, triggered manually here rather than automatically).
func (h *Handlers) RecreateIndexes(w http.ResponseWriter, r *http.Request) {
	rb, ok := h.store.(rebuilder)
	if !ok {
		writeErrorCode(w, http.StatusNotImplemented, "InvalidRequest", "store does not support index rebuild")
		return
	}
	if err := rb.Rebuild(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

type adminStatusWire struct {
	Status        string   `json:"status"`
	UptimeSec     int64    `json:"uptime_seconds"`
	MemoryCount   int      `json:"memory_count"`
	CleanupJobs   []string `json:"cleanup_journal,omitempty"`
}

// AdminStatus handles GET /api/v1/admin/status: counts and health (§6.1).
func (h *Handlers) AdminStatus(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.AllMemories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := adminStatusWire{
		Status:      "ok",
		UptimeSec:   int64(time.Since(h.startedAt).Seconds()),
		MemoryCount: len(all),
	}
	if h.scheduler != nil {
		for _, s := range h.scheduler.Journal() {
			status.CleanupJobs = append(status.CleanupJobs, s.Job)
		}
	}
	writeJSON(w, http.StatusOK, status)
}
