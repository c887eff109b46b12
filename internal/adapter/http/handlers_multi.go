package http

import (
	"net/http"

	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
	"github.com/engram-ai/engram/internal/middleware"
)

type storeMultiWire struct {
	WitnessedBy   []string      `json:"witnessed_by"`
	SituationType string        `json:"situation_type,omitempty"`
	SituationID   string        `json:"situation_id,omitempty"`
	Content       contentWire   `json:"content"`
	PrimaryVector []float32     `json:"primary_vector"`
	Metadata      metadataWire  `json:"metadata"`
	Causality     causalityWire `json:"causality,omitempty"`
	PrivacyLevel  string        `json:"privacy_level,omitempty"`
	Retention     retentionWire `json:"retention,omitempty"`
}

// StoreMulti handles POST /cam/multi/store: store_multi (§4.2, §6.1).
func (h *Handlers) StoreMulti(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[storeMultiWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	if err := h.sanitizeContent(req.Content.Text); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	metadata, err := req.Metadata.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := h.engine.StoreMulti(r.Context(), engine.StoreMultiRequest{
		WitnessedBy:   req.WitnessedBy,
		SituationType: engram.SituationType(req.SituationType),
		SituationID:   req.SituationID,
		Content:       req.Content.toDomain(),
		PrimaryVector: req.PrimaryVector,
		Metadata:      metadata,
		Causality:     req.Causality.toDomain(),
		PrivacyLevel:  engram.PrivacyLevel(req.PrivacyLevel),
		Retention:     req.Retention.toDomain(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreResultWire(res))
}

type entityFiltersWire struct {
	CoParticipants   []string `json:"co_participants,omitempty"`
	ExcludePrivateTo []string `json:"exclude_private_to,omitempty"`
}

type retrieveMultiWire struct {
	retrieveSingleWire
	RequestingEntity string            `json:"requesting_entity"`
	EntityFilters    entityFiltersWire `json:"entity_filters,omitempty"`
}

// RetrieveMulti handles POST /cam/multi/retrieve: retrieve_multi (§4.2, §6.1).
func (h *Handlers) RetrieveMulti(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[retrieveMultiWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	single, err := req.retrieveSingleWire.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := h.engine.RetrieveMulti(r.Context(), engine.RetrieveMultiRequest{
		RetrieveSingleRequest: single,
		RequestingEntity:      req.RequestingEntity,
		EntityFilters: engine.EntityFilters{
			CoParticipants:   req.EntityFilters.CoParticipants,
			ExcludePrivateTo: req.EntityFilters.ExcludePrivateTo,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRetrieveMultiResultWire(res))
}

// GetMultiMemory handles GET /cam/multi/memory/{id}, witness-scoped by
// the requesting_entity query parameter.
func (h *Handlers) GetMultiMemory(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	requester := r.URL.Query().Get("requesting_entity")
	if requester == "" {
		requester = middleware.RequesterFromContext(r.Context())
	}
	m, err := h.engine.Get(r.Context(), id, requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemoryWire(m))
}

// SituationsForEntity handles GET /cam/multi/situations/{entity_id}.
func (h *Handlers) SituationsForEntity(w http.ResponseWriter, r *http.Request) {
	entityID := urlParam(r, "entity_id")
	situations, err := h.engine.SituationsFor(r.Context(), entityID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]situationWire, len(situations))
	for i, s := range situations {
		out[i] = toSituationWire(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"situations": out})
}
