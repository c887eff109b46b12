package http

import (
	"net/http"

	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
	"github.com/engram-ai/engram/internal/middleware"
)

// sanitizeContent applies §4.6's field byte ceiling and injection-pattern
// check to a memory's content text.
func (h *Handlers) sanitizeContent(text string) error {
	limit := h.sanitize.FieldByteLimit
	if limit <= 0 {
		limit = middleware.DefaultFieldByteLimit
	}
	return middleware.SanitizeText("content.text", text, limit)
}

// sanitizeComment applies §4.6's comment byte ceiling and
// injection-pattern check to an annotation's free-text content.
func (h *Handlers) sanitizeComment(text string) error {
	limit := h.sanitize.CommentByteLimit
	if limit <= 0 {
		limit = middleware.DefaultCommentByteLimit
	}
	return middleware.SanitizeText("annotation.content", text, limit)
}

type storeSingleWire struct {
	Content       contentWire   `json:"content"`
	PrimaryVector []float32     `json:"primary_vector"`
	Metadata      metadataWire  `json:"metadata"`
	Tags          []string      `json:"tags,omitempty"`
	Causality     causalityWire `json:"causality,omitempty"`
	SituationType string        `json:"situation_type,omitempty"`
}

// StoreSingle handles POST /cam/store: store_single (§4.2, §6.1).
func (h *Handlers) StoreSingle(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[storeSingleWire](w, r, h.bodyLimit)
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
	res, err := h.engine.StoreSingle(r.Context(), engine.StoreSingleRequest{
		Content:       req.Content.toDomain(),
		PrimaryVector: req.PrimaryVector,
		Metadata:      metadata,
		Tags:          req.Tags,
		Causality:     req.Causality.toDomain(),
		SituationType: engram.SituationType(req.SituationType),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreResultWire(res))
}

type retrieveSingleWire struct {
	ResonanceVectors []resonanceVectorWire `json:"resonance_vectors"`
	TagsInclude      []string              `json:"tags_include,omitempty"`
	TagsExclude      []string              `json:"tags_exclude,omitempty"`
	Filters          retrievalFiltersWire  `json:"filters,omitempty"`
	Retrieval        retrievalOptionsWire  `json:"retrieval,omitempty"`
}

func (req retrieveSingleWire) toDomain() (engine.RetrieveSingleRequest, error) {
	vectors := make([]engine.ResonanceVector, len(req.ResonanceVectors))
	for i, v := range req.ResonanceVectors {
		vectors[i] = engine.ResonanceVector{Vector: v.Vector, Weight: v.Weight, Label: v.Label}
	}
	filters, err := req.Filters.toDomain()
	if err != nil {
		return engine.RetrieveSingleRequest{}, err
	}
	return engine.RetrieveSingleRequest{
		ResonanceVectors: vectors,
		TagsInclude:      req.TagsInclude,
		TagsExclude:      req.TagsExclude,
		Filters:          filters,
		Retrieval:        req.Retrieval.toDomain(),
	}, nil
}

// RetrieveSingle handles POST /cam/retrieve: retrieve_single (§4.2, §6.1).
func (h *Handlers) RetrieveSingle(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[retrieveSingleWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	domainReq, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := h.engine.RetrieveSingle(r.Context(), domainReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRetrieveResultWire(res))
}

// GetMemory handles GET /cam/memory/{id}.
func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	requester := middleware.RequesterFromContext(r.Context())
	m, err := h.engine.Get(r.Context(), id, requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemoryWire(m))
}

// AnnotateMemory handles POST /cam/memory/{id}/annotate.
func (h *Handlers) AnnotateMemory(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[annotationWire](w, r, h.bodyLimit)
	if !ok {
		return
	}
	a, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.sanitizeComment(a.Content); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	annotatorID := a.AnnotatorID
	if err := h.engine.Annotate(r.Context(), id, annotatorID, a); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "annotated"})
}

// ListAnnotations handles GET /cam/memory/{id}/annotations.
func (h *Handlers) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	requester := middleware.RequesterFromContext(r.Context())
	annotations, err := h.engine.Annotations(r.Context(), id, requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]annotationWire, len(annotations))
	for i, a := range annotations {
		out[i] = toAnnotationWire(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotations": out})
}
