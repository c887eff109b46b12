package engine

import (
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// ResonanceVector is a query embedding supplied with a weight; multiple
// resonance vectors are combined into a single query direction (§4.2).
type ResonanceVector struct {
	Vector []float32
	Weight float64
	Label  string
}

// StoreSingleRequest is the input to store_single (§4.2).
type StoreSingleRequest struct {
	Content       engram.Content
	PrimaryVector []float32
	Metadata      engram.Metadata
	Tags          []string
	Causality     engram.Causality
	SituationType engram.SituationType // defaults to legacy_single_agent
}

// StoreMultiRequest is the input to store_multi (§4.2).
type StoreMultiRequest struct {
	WitnessedBy   []string
	SituationType engram.SituationType
	SituationID   string
	Content       engram.Content
	PrimaryVector []float32
	Metadata      engram.Metadata
	Causality     engram.Causality
	PrivacyLevel  engram.PrivacyLevel // defaults to participants_only
	Retention     engram.Retention
}

// StoreResult is the shared result shape of store_single and store_multi.
type StoreResult struct {
	MemoryID  string
	Status    string
	Timestamp time.Time
}

// RetrievalFilters narrows a retrieval by structured metadata (§4.2).
type RetrievalFilters struct {
	TimestampAfter      time.Time
	TimestampBefore     time.Time
	MemoryTypes         []engram.MemoryType
	AgentIDs            []string
	ConfidenceThreshold float64
	Domains             []string
}

// RetrievalOptions controls ranking and diversification (§4.2).
type RetrievalOptions struct {
	TopK                int
	SimilarityThreshold float64
	DiversityLambda     float64
	BoostRecent         bool
}

// RetrieveSingleRequest is the input to retrieve_single (§4.2).
type RetrieveSingleRequest struct {
	ResonanceVectors []ResonanceVector
	TagsInclude      []string
	TagsExclude      []string
	Filters          RetrievalFilters
	Retrieval        RetrievalOptions
}

// EntityFilters are the additional witness-aware filters of retrieve_multi (§4.2).
type EntityFilters struct {
	CoParticipants   []string
	ExcludePrivateTo []string
}

// RetrieveMultiRequest is the input to retrieve_multi (§4.2).
type RetrieveMultiRequest struct {
	RetrieveSingleRequest
	RequestingEntity string
	EntityFilters    EntityFilters
}

// RetrieveResult is the shared result shape of retrieve_single (§4.2).
type RetrieveResult struct {
	Memories        []engram.ScoredMemory
	TotalFound      int
	SearchTimeMS    int64
	QueryVectorDims int
}

// RetrieveMultiResult adds witness-accounting fields to RetrieveResult (§4.2).
type RetrieveMultiResult struct {
	RetrieveResult
	AccessGrantedCount int
	AccessDeniedCount  int
	SearchScope        string
}
