package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/witness"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// poolSize returns the MMR candidate pool size (§4.2: max(4*top_k, 50)).
func poolSize(topK int) int {
	p := 4 * topK
	if p < 50 {
		p = 50
	}
	return p
}

// RetrieveSingle implements retrieve_single (§4.2). It carries no witness
// restriction: the legacy single-agent surface is scoped by whatever
// agent_id filter the caller supplies, not by an access predicate.
func (e *Engine) RetrieveSingle(ctx context.Context, req RetrieveSingleRequest) (RetrieveResult, error) {
	start := time.Now()
	query, err := e.buildQuery(req)
	if err != nil {
		return RetrieveResult{}, err
	}

	k := req.Retrieval.TopK
	if k == 0 {
		return RetrieveResult{QueryVectorDims: len(query), SearchTimeMS: elapsedMS(start)}, nil
	}
	fetchK := k
	if req.Retrieval.DiversityLambda > 0 {
		fetchK = poolSize(k)
	}

	candidates, err := e.store.KNN(ctx, query, fetchK, req.Retrieval.SimilarityThreshold, recordstore.Filter{
		MemoryType: firstMemoryType(req.Filters.MemoryTypes),
		After:      req.Filters.TimestampAfter,
	})
	if err != nil {
		return RetrieveResult{}, fmt.Errorf("%w: %v", domain.ErrStorageError, err)
	}

	filtered := make([]engram.ScoredMemory, 0, len(candidates))
	for _, c := range candidates {
		if !matchesRetrievalFilters(c.Memory, req) {
			continue
		}
		filtered = append(filtered, c)
	}

	applyBoostRecent(filtered, req.Retrieval.BoostRecent, time.Now())
	sortDescending(filtered)

	final := filtered
	if req.Retrieval.DiversityLambda > 0 {
		final = mmrSelect(filtered, k, req.Retrieval.DiversityLambda)
	} else if len(filtered) > k {
		final = filtered[:k]
	}

	return RetrieveResult{
		Memories:        final,
		TotalFound:      len(filtered),
		SearchTimeMS:    elapsedMS(start),
		QueryVectorDims: len(query),
	}, nil
}

// RetrieveMulti implements retrieve_multi (§4.2): a witness-scoped
// retrieval where the KNN query is always restricted to the requesting
// entity's witnessed memories, then post-checked against the access
// predicate as a defence-in-depth measure (§7 error taxonomy note on
// Forbidden vs NotFound is not relevant here since this is not a
// single-ID lookup).
func (e *Engine) RetrieveMulti(ctx context.Context, req RetrieveMultiRequest) (RetrieveMultiResult, error) {
	if req.RequestingEntity == "" {
		return RetrieveMultiResult{}, fmt.Errorf("%w: requesting_entity is required", domain.ErrValidation)
	}
	start := time.Now()
	query, err := e.buildQuery(req.RetrieveSingleRequest)
	if err != nil {
		return RetrieveMultiResult{}, err
	}

	k := req.Retrieval.TopK
	if k == 0 {
		return RetrieveMultiResult{
			RetrieveResult: RetrieveResult{QueryVectorDims: len(query), SearchTimeMS: elapsedMS(start)},
			SearchScope:    "witnessed_memories_only",
		}, nil
	}
	fetchK := k
	if req.Retrieval.DiversityLambda > 0 {
		fetchK = poolSize(k)
	}

	normalizedRequester := witness.Normalize(req.RequestingEntity)
	candidates, err := e.store.KNN(ctx, query, fetchK, req.Retrieval.SimilarityThreshold, recordstore.Filter{
		RequesterIDs: []string{normalizedRequester},
		MemoryType:   firstMemoryType(req.Filters.MemoryTypes),
		After:        req.Filters.TimestampAfter,
	})
	if err != nil {
		return RetrieveMultiResult{}, fmt.Errorf("%w: %v", domain.ErrStorageError, err)
	}

	filtered := make([]engram.ScoredMemory, 0, len(candidates))
	granted, denied := 0, 0
	for _, c := range candidates {
		if !witness.Allow(c.Memory, req.RequestingEntity) {
			denied++
			continue
		}
		granted++
		if !matchesRetrievalFilters(c.Memory, req.RetrieveSingleRequest) {
			continue
		}
		if !matchesEntityFilters(c.Memory, req.EntityFilters, normalizedRequester) {
			continue
		}
		filtered = append(filtered, c)
	}

	applyBoostRecent(filtered, req.Retrieval.BoostRecent, time.Now())
	sortDescending(filtered)

	final := filtered
	if req.Retrieval.DiversityLambda > 0 {
		final = mmrSelect(filtered, k, req.Retrieval.DiversityLambda)
	} else if len(filtered) > k {
		final = filtered[:k]
	}

	return RetrieveMultiResult{
		RetrieveResult: RetrieveResult{
			Memories:        final,
			TotalFound:      len(filtered),
			SearchTimeMS:    elapsedMS(start),
			QueryVectorDims: len(query),
		},
		AccessGrantedCount: granted,
		AccessDeniedCount:  denied,
		SearchScope:        "witnessed_memories_only",
	}, nil
}

func (e *Engine) buildQuery(req RetrieveSingleRequest) ([]float32, error) {
	if len(req.ResonanceVectors) == 0 {
		return nil, fmt.Errorf("%w: at least one resonance vector is required", domain.ErrValidation)
	}
	query := combineResonance(req.ResonanceVectors)
	if e.vectorDim > 0 {
		if err := engram.ValidateVector(query, e.vectorDim); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}
	return query, nil
}

func firstMemoryType(types []engram.MemoryType) engram.MemoryType {
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

func matchesRetrievalFilters(m engram.Memory, req RetrieveSingleRequest) bool {
	if len(req.TagsInclude) > 0 && !containsAll(m.Tags, req.TagsInclude) {
		return false
	}
	if len(req.TagsExclude) > 0 && containsAny(m.Tags, req.TagsExclude) {
		return false
	}
	if !req.Filters.TimestampBefore.IsZero() && m.Metadata.Timestamp.After(req.Filters.TimestampBefore) {
		return false
	}
	if len(req.Filters.MemoryTypes) > 0 && !memoryTypeIn(m.Metadata.MemoryType, req.Filters.MemoryTypes) {
		return false
	}
	if len(req.Filters.AgentIDs) > 0 && !stringIn(m.Metadata.AgentID, req.Filters.AgentIDs) {
		return false
	}
	if req.Filters.ConfidenceThreshold > 0 && m.Metadata.Confidence < req.Filters.ConfidenceThreshold {
		return false
	}
	if len(req.Filters.Domains) > 0 && !stringIn(m.Metadata.Domain, req.Filters.Domains) {
		return false
	}
	return true
}

func matchesEntityFilters(m engram.Memory, f EntityFilters, normalizedRequester string) bool {
	if len(f.CoParticipants) > 0 {
		for _, p := range f.CoParticipants {
			if !witness.Contains(m.WitnessedBy, p) {
				return false
			}
		}
	}
	if len(f.ExcludePrivateTo) > 0 {
		excluded := make(map[string]struct{})
		for _, id := range witness.NormalizeAll(f.ExcludePrivateTo) {
			if id == normalizedRequester {
				continue
			}
			excluded[id] = struct{}{}
		}
		if setEquals(witness.NormalizeAll(m.WitnessedBy), excluded) {
			return false
		}
	}
	return true
}

func setEquals(members []string, set map[string]struct{}) bool {
	if len(members) != len(set) {
		return false
	}
	for _, m := range members {
		if _, ok := set[m]; !ok {
			return false
		}
	}
	return true
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func containsAny(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func memoryTypeIn(t engram.MemoryType, types []engram.MemoryType) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func stringIn(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

func applyBoostRecent(memories []engram.ScoredMemory, enabled bool, now time.Time) {
	if !enabled {
		return
	}
	for i := range memories {
		memories[i].SimilarityScore *= recencyMultiplier(memories[i].Memory, now)
		if memories[i].SimilarityScore > 1.0 {
			memories[i].SimilarityScore = 1.0
		}
	}
}

func sortDescending(memories []engram.ScoredMemory) {
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].SimilarityScore > memories[j].SimilarityScore
	})
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
