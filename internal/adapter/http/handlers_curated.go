package http

import (
	"net/http"
	"time"

	"github.com/engram-ai/engram/internal/curation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
)

type curatedTurnWire struct {
	AgentID             string   `json:"agent_id"`
	WitnessedBy         []string `json:"witnessed_by"`
	SituationType       string   `json:"situation_type,omitempty"`
	SituationID         string   `json:"situation_id,omitempty"`
	UserInput           string   `json:"user_input"`
	AgentResponse       string   `json:"agent_response,omitempty"`
	ConversationContext string   `json:"conversation_context,omitempty"`
	ExistingMemoryCount int      `json:"existing_memory_count,omitempty"`
	PriorityTopics      []string `json:"priority_topics,omitempty"`
	RetentionBias       string   `json:"retention_bias,omitempty"`
	PrivacySensitivity  string   `json:"privacy_sensitivity,omitempty"`
	ForceStorage        bool     `json:"force_storage,omitempty"`
	AnalyzeOnly         bool     `json:"analyze_only,omitempty"`
}

func (t curatedTurnWire) toDomain() curation.Turn {
	return curation.Turn{
		AgentID:             t.AgentID,
		WitnessedBy:         t.WitnessedBy,
		SituationType:       engram.SituationType(t.SituationType),
		SituationID:         t.SituationID,
		UserInput:           t.UserInput,
		AgentResponse:       t.AgentResponse,
		ConversationContext: t.ConversationContext,
		ExistingMemoryCount: t.ExistingMemoryCount,
		PriorityTopics:      t.PriorityTopics,
		RetentionBias:       t.RetentionBias,
		PrivacySensitivity:  t.PrivacySensitivity,
		ForceStorage:        t.ForceStorage,
		AnalyzeOnly:         t.AnalyzeOnly,
	}
}

func toReportWire(r curation.Report) reportWire {
	decisions := make([]curationDecisionWire, len(r.Decisions))
	for i, d := range r.Decisions {
		decisions[i] = toCurationDecisionWire(d)
	}
	stored := r.StoredMemories
	if stored == nil {
		stored = []string{}
	}
	return reportWire{Decisions: decisions, StoredMemories: stored, UsedFallback: r.UsedFallback}
}

type reportWire struct {
	Decisions      []curationDecisionWire `json:"decisions"`
	StoredMemories []string               `json:"stored_memories"`
	UsedFallback   bool                   `json:"used_fallback"`
}

// AnalyzeCurated handles POST /cam/curated/analyze: curation with
// analyze_only forced true regardless of what the caller sent, since
// this endpoint's whole purpose is a dry run (§4.3).
func (h *Handlers) AnalyzeCurated(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[curatedTurnWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	if err := h.sanitizeContent(req.UserInput); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	turn := req.toDomain()
	turn.AnalyzeOnly = true
	report, err := h.pipeline.Process(r.Context(), turn)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportWire(report))
}

// StoreCurated handles POST /cam/curated/store: the full curation
// pipeline (§4.3), honoring force_storage and analyze_only as the
// caller set them.
func (h *Handlers) StoreCurated(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[curatedTurnWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	if err := h.sanitizeContent(req.UserInput); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	report, err := h.pipeline.Process(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportWire(report))
}

// RetrieveCurated handles POST /cam/curated/retrieve: retrieval over
// curated memories is the same witness-scoped retrieve_multi surface,
// exposed under the curated namespace for API symmetry (§6.1).
func (h *Handlers) RetrieveCurated(w http.ResponseWriter, r *http.Request) {
	h.RetrieveMulti(w, r)
}

type entityStatsWire struct {
	EntityID          string         `json:"entity_id"`
	TotalMemories     int            `json:"total_memories"`
	ByMemoryType      map[string]int `json:"by_memory_type"`
	AverageConfidence float64        `json:"average_confidence"`
	AverageImportance float64        `json:"average_importance"`
	FirstSeen         string         `json:"first_seen,omitempty"`
	LastSeen          string         `json:"last_seen,omitempty"`
}

func toEntityStatsWire(s engine.EntityStats) entityStatsWire {
	w := entityStatsWire{
		EntityID:          s.EntityID,
		TotalMemories:     s.TotalMemories,
		ByMemoryType:      s.ByMemoryType,
		AverageConfidence: s.AverageConfidence,
		AverageImportance: s.AverageImportance,
	}
	if !s.FirstSeen.IsZero() {
		w.FirstSeen = s.FirstSeen.UTC().Format(time.RFC3339)
	}
	if !s.LastSeen.IsZero() {
		w.LastSeen = s.LastSeen.UTC().Format(time.RFC3339)
	}
	return w
}

// StatsForEntity handles GET /cam/curated/stats/{entity_id}: an
// aggregate view over every memory the entity witnesses.
func (h *Handlers) StatsForEntity(w http.ResponseWriter, r *http.Request) {
	entityID := urlParam(r, "entity_id")
	stats, err := h.engine.StatsForEntity(r.Context(), entityID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntityStatsWire(stats))
}
