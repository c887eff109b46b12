package http

import (
	"time"

	"github.com/engram-ai/engram/internal/domain/annotation"
	domcuration "github.com/engram-ai/engram/internal/domain/curation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/situation"
	"github.com/engram-ai/engram/internal/engine"
)

// contentWire mirrors engram.Content on the wire; it exists separately
// so a caller may omit fields entirely without engram.Content's zero
// values leaking meaning.
type contentWire struct {
	Text     string              `json:"text"`
	Media    []engram.MediaRef   `json:"media,omitempty"`
	Speakers map[string]string   `json:"speakers,omitempty"`
	Summary  string              `json:"summary,omitempty"`
}

func (c contentWire) toDomain() engram.Content {
	return engram.Content{Text: c.Text, Media: c.Media, Speakers: c.Speakers, Summary: c.Summary}
}

type metadataWire struct {
	Timestamp             string             `json:"timestamp,omitempty"`
	MemoryType            engram.MemoryType  `json:"memory_type"`
	AgentID               string             `json:"agent_id,omitempty"`
	Domain                string             `json:"domain,omitempty"`
	Confidence            float64            `json:"confidence,omitempty"`
	Importance            float64            `json:"importance,omitempty"`
	TopicTags             []string           `json:"topic_tags,omitempty"`
	InteractionQuality    float64            `json:"interaction_quality,omitempty"`
	SituationDurationMins float64            `json:"situation_duration_minutes,omitempty"`
}

func (m metadataWire) toDomain() (engram.Metadata, error) {
	out := engram.Metadata{
		MemoryType:            m.MemoryType,
		AgentID:               m.AgentID,
		Domain:                m.Domain,
		Confidence:            m.Confidence,
		Importance:            m.Importance,
		TopicTags:             m.TopicTags,
		InteractionQuality:    m.InteractionQuality,
		SituationDurationMins: m.SituationDurationMins,
	}
	if m.Timestamp != "" {
		ts, err := engram.ValidateTimestamp(m.Timestamp)
		if err != nil {
			return engram.Metadata{}, err
		}
		out.Timestamp = ts
	}
	return out, nil
}

type causalityWire struct {
	ParentMemories    []string  `json:"parent_memories,omitempty"`
	InfluenceStrength []float64 `json:"influence_strength,omitempty"`
	SynthesisType     string    `json:"synthesis_type,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
}

func (c causalityWire) toDomain() engram.Causality {
	return engram.Causality{
		ParentMemories:    c.ParentMemories,
		InfluenceStrength: c.InfluenceStrength,
		SynthesisType:     c.SynthesisType,
		Reasoning:         c.Reasoning,
	}
}

type retentionWire struct {
	TTLSeconds    int64                `json:"ttl_seconds,omitempty"`
	DecayFunction engram.DecayFunction `json:"decay_function,omitempty"`
}

func (r retentionWire) toDomain() engram.Retention {
	return engram.Retention{TTLSeconds: r.TTLSeconds, DecayFunction: r.DecayFunction}
}

// memoryWire is the wire representation of a stored memory returned by
// get/retrieve endpoints. It is built from engram.Memory rather than
// serialized directly so the vector and any field not listed here stay
// off the wire.
type memoryWire struct {
	MemoryID       string        `json:"memory_id"`
	Content        contentWire   `json:"content"`
	ContentPreview string        `json:"content_preview,omitempty"`
	Metadata       metadataWire  `json:"metadata"`
	Tags           []string      `json:"tags,omitempty"`
	WitnessedBy    []string      `json:"witnessed_by"`
	SituationID    string        `json:"situation_id"`
	SituationType  string        `json:"situation_type"`
	PrivacyLevel   string        `json:"privacy_level"`
	Causality      causalityWire `json:"causality,omitempty"`
	Retention      retentionWire `json:"retention,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	AccessCount    int64         `json:"access_count"`
}

func toMemoryWire(m engram.Memory) memoryWire {
	return memoryWire{
		MemoryID: m.MemoryID,
		Content:  contentWire{Text: m.Content.Text, Media: m.Content.Media, Speakers: m.Content.Speakers, Summary: m.Content.Summary},
		Metadata: metadataWire{
			Timestamp:             m.Metadata.Timestamp.UTC().Format(time.RFC3339),
			MemoryType:            m.Metadata.MemoryType,
			AgentID:               m.Metadata.AgentID,
			Domain:                m.Metadata.Domain,
			Confidence:            m.Metadata.Confidence,
			Importance:            m.Metadata.Importance,
			TopicTags:             m.Metadata.TopicTags,
			InteractionQuality:    m.Metadata.InteractionQuality,
			SituationDurationMins: m.Metadata.SituationDurationMins,
		},
		Tags:          m.Tags,
		WitnessedBy:   m.WitnessedBy,
		SituationID:   m.SituationID,
		SituationType: string(m.SituationType),
		PrivacyLevel:  string(m.PrivacyLevel),
		Causality: causalityWire{
			ParentMemories:    m.Causality.ParentMemories,
			InfluenceStrength: m.Causality.InfluenceStrength,
			SynthesisType:     m.Causality.SynthesisType,
			Reasoning:         m.Causality.Reasoning,
		},
		Retention:   retentionWire{TTLSeconds: m.Retention.TTLSeconds, DecayFunction: m.Retention.DecayFunction},
		CreatedAt:   m.CreatedAt,
		AccessCount: m.AccessCount,
	}
}

// scoredMemoryWire adds similarity_score and a content_preview cut to
// §4.2's stated 200 characters.
type scoredMemoryWire struct {
	memoryWire
	SimilarityScore float64 `json:"similarity_score"`
}

func toScoredMemoryWire(sm engram.ScoredMemory) scoredMemoryWire {
	w := toMemoryWire(sm.Memory)
	w.ContentPreview = engram.ContentPreview(sm.Memory.Content.Text, 200)
	return scoredMemoryWire{memoryWire: w, SimilarityScore: sm.SimilarityScore}
}

type resonanceVectorWire struct {
	Vector []float32 `json:"vector"`
	Weight float64   `json:"weight"`
	Label  string    `json:"label,omitempty"`
}

type retrievalFiltersWire struct {
	TimestampAfter      string               `json:"timestamp_after,omitempty"`
	TimestampBefore     string               `json:"timestamp_before,omitempty"`
	MemoryTypes         []engram.MemoryType  `json:"memory_types,omitempty"`
	AgentIDs            []string             `json:"agent_ids,omitempty"`
	ConfidenceThreshold float64              `json:"confidence_threshold,omitempty"`
	Domains             []string             `json:"domains,omitempty"`
}

func (f retrievalFiltersWire) toDomain() (engine.RetrievalFilters, error) {
	out := engine.RetrievalFilters{
		MemoryTypes:         f.MemoryTypes,
		AgentIDs:            f.AgentIDs,
		ConfidenceThreshold: f.ConfidenceThreshold,
		Domains:             f.Domains,
	}
	if f.TimestampAfter != "" {
		t, err := engram.ValidateTimestamp(f.TimestampAfter)
		if err != nil {
			return engine.RetrievalFilters{}, err
		}
		out.TimestampAfter = t
	}
	if f.TimestampBefore != "" {
		t, err := engram.ValidateTimestamp(f.TimestampBefore)
		if err != nil {
			return engine.RetrievalFilters{}, err
		}
		out.TimestampBefore = t
	}
	return out, nil
}

type retrievalOptionsWire struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	DiversityLambda     float64 `json:"diversity_lambda,omitempty"`
	BoostRecent         bool    `json:"boost_recent,omitempty"`
}

func (o retrievalOptionsWire) toDomain() engine.RetrievalOptions {
	k := o.TopK
	if k == 0 {
		k = 10
	}
	return engine.RetrievalOptions{
		TopK:                k,
		SimilarityThreshold: o.SimilarityThreshold,
		DiversityLambda:     o.DiversityLambda,
		BoostRecent:         o.BoostRecent,
	}
}

type retrieveResultWire struct {
	Memories        []scoredMemoryWire `json:"memories"`
	TotalFound      int                `json:"total_found"`
	SearchTimeMS    int64              `json:"search_time_ms"`
	QueryVectorDims int                `json:"query_vector_dims"`
}

func toRetrieveResultWire(r engine.RetrieveResult) retrieveResultWire {
	memories := make([]scoredMemoryWire, len(r.Memories))
	for i, m := range r.Memories {
		memories[i] = toScoredMemoryWire(m)
	}
	return retrieveResultWire{
		Memories:        memories,
		TotalFound:      r.TotalFound,
		SearchTimeMS:    r.SearchTimeMS,
		QueryVectorDims: r.QueryVectorDims,
	}
}

type retrieveMultiResultWire struct {
	retrieveResultWire
	AccessGrantedCount int    `json:"access_granted_count"`
	AccessDeniedCount  int    `json:"access_denied_count"`
	SearchScope        string `json:"search_scope"`
}

func toRetrieveMultiResultWire(r engine.RetrieveMultiResult) retrieveMultiResultWire {
	return retrieveMultiResultWire{
		retrieveResultWire: toRetrieveResultWire(r.RetrieveResult),
		AccessGrantedCount: r.AccessGrantedCount,
		AccessDeniedCount:  r.AccessDeniedCount,
		SearchScope:        r.SearchScope,
	}
}

type storeResultWire struct {
	MemoryID  string    `json:"memory_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func toStoreResultWire(r engine.StoreResult) storeResultWire {
	return storeResultWire{MemoryID: r.MemoryID, Status: r.Status, Timestamp: r.Timestamp}
}

type annotationWire struct {
	AnnotatorID   string    `json:"annotator_id"`
	Timestamp     string    `json:"timestamp,omitempty"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Vector        []float32 `json:"vector,omitempty"`
	EvidenceLinks []string  `json:"evidence_links,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
}

func (a annotationWire) toDomain() (annotation.Annotation, error) {
	out := annotation.Annotation{
		AnnotatorID:   a.AnnotatorID,
		Type:          a.Type,
		Content:       a.Content,
		Vector:        a.Vector,
		EvidenceLinks: a.EvidenceLinks,
		Tags:          a.Tags,
		Confidence:    a.Confidence,
	}
	if a.Timestamp != "" {
		ts, err := engram.ValidateTimestamp(a.Timestamp)
		if err != nil {
			return annotation.Annotation{}, err
		}
		out.Timestamp = ts
	}
	return out, nil
}

func toAnnotationWire(a annotation.Annotation) annotationWire {
	return annotationWire{
		AnnotatorID:   a.AnnotatorID,
		Timestamp:     a.Timestamp.UTC().Format(time.RFC3339),
		Type:          a.Type,
		Content:       a.Content,
		Vector:        a.Vector,
		EvidenceLinks: a.EvidenceLinks,
		Tags:          a.Tags,
		Confidence:    a.Confidence,
	}
}

type situationWire struct {
	SituationID   string    `json:"situation_id"`
	SituationType string    `json:"situation_type"`
	Participants  []string  `json:"participants"`
	MemoryIDs     []string  `json:"memory_ids"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	Status        string    `json:"status"`
}

func toSituationWire(s situation.Situation) situationWire {
	return situationWire{
		SituationID:   s.SituationID,
		SituationType: string(s.SituationType),
		Participants:  s.Participants,
		MemoryIDs:     s.MemoryIDs,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
		Status:        string(s.Status),
	}
}

type curationDecisionWire struct {
	Observation     domcuration.Observation `json:"observation"`
	Admitted        bool                    `json:"admitted"`
	Reason          string                  `json:"reason,omitempty"`
	MemoryID        string                  `json:"memory_id,omitempty"`
	RetentionPolicy string                  `json:"retention_policy,omitempty"`
}

func toCurationDecisionWire(d domcuration.Decision) curationDecisionWire {
	return curationDecisionWire{
		Observation:     d.Observation,
		Admitted:        d.Admitted,
		Reason:          d.Reason,
		MemoryID:        d.MemoryID,
		RetentionPolicy: string(d.Retention),
	}
}
