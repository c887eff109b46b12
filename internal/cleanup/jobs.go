package cleanup

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// decayLambda is the exponential decay rate for the monthly importance
// renormalization (§4.5: importance <- importance * e^{-lambda*age}).
// At 90 days of age a logarithmic-decay memory keeps e^{-1}, roughly a
// third, of its importance.
const decayLambda = 1.0 / 90.0

// consolidationSimilarityThreshold is the cosine-similarity floor for
// two memories to be considered consolidation candidates (§4.5).
const consolidationSimilarityThreshold = 0.95

// RunDailyExpiry deletes every memory whose created_at + ttl_seconds has
// passed (§4.5 daily job). A ttl_seconds of zero means the memory never
// expires on a fixed clock.
func (s *Scheduler) RunDailyExpiry(ctx context.Context) (Summary, error) {
	memories, err := s.store.AllMemories(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("daily expiry: list memories: %w", err)
	}

	now := time.Now().UTC()
	sum := Summary{Job: "daily_expiry"}
	for _, m := range memories {
		if m.Retention.TTLSeconds <= 0 {
			continue
		}
		expiresAt := m.CreatedAt.Add(time.Duration(m.Retention.TTLSeconds) * time.Second)
		if expiresAt.After(now) {
			continue
		}
		if err := s.store.Delete(ctx, m.MemoryID); err != nil {
			s.log.Warn("daily expiry: delete failed", "memory_id", m.MemoryID, "error", err)
			continue
		}
		sum.Deleted++
	}
	return sum, nil
}

// RunWeeklyConsolidation merges pairs of memories with cosine similarity
// above consolidationSimilarityThreshold and identical normalized
// witness sets. The merged record keeps the earlier memory's identity,
// concatenates content, and takes the higher confidence and the earlier
// timestamp of the pair (§4.5 weekly job).
func (s *Scheduler) RunWeeklyConsolidation(ctx context.Context) (Summary, error) {
	memories, err := s.store.AllMemories(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("weekly consolidation: list memories: %w", err)
	}

	sum := Summary{Job: "weekly_consolidation"}
	consumed := make(map[string]bool, len(memories))

	for i := range memories {
		a := memories[i]
		if consumed[a.MemoryID] {
			continue
		}
		for j := i + 1; j < len(memories); j++ {
			b := memories[j]
			if consumed[b.MemoryID] || a.MemoryID == b.MemoryID {
				continue
			}
			if !sameWitnessSet(a.WitnessedBy, b.WitnessedBy) {
				continue
			}
			if cosine(a.Vector, b.Vector) <= consolidationSimilarityThreshold {
				continue
			}

			merged := mergeMemories(a, b)
			if err := s.store.Update(ctx, merged); err != nil {
				s.log.Warn("weekly consolidation: update failed", "memory_id", merged.MemoryID, "error", err)
				continue
			}
			toDelete := b.MemoryID
			if merged.MemoryID == b.MemoryID {
				toDelete = a.MemoryID
			}
			if err := s.store.Delete(ctx, toDelete); err != nil {
				s.log.Warn("weekly consolidation: delete failed", "memory_id", toDelete, "error", err)
				continue
			}
			consumed[a.MemoryID] = true
			consumed[b.MemoryID] = true
			sum.Merged++
			break
		}
	}
	return sum, nil
}

// mergeMemories keeps the memory with the earlier created_at as the
// surviving record, concatenates content, and takes the higher
// confidence of the pair (§4.5).
func mergeMemories(a, b engram.Memory) engram.Memory {
	survivor, other := a, b
	if b.CreatedAt.Before(a.CreatedAt) {
		survivor, other = b, a
	}
	survivor.Content.Text = survivor.Content.Text + "\n" + other.Content.Text
	if other.Metadata.Confidence > survivor.Metadata.Confidence {
		survivor.Metadata.Confidence = other.Metadata.Confidence
	}
	survivor.Tags = mergeTags(survivor.Tags, other.Tags)
	return survivor
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(append([]string{}, a...), b...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sameWitnessSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	for _, w := range b {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RunMonthlyDecay renormalizes importance for every memory whose
// retention.decay_function is not "none" (§4.5 monthly job).
// logarithmic decay applies importance <- importance * e^{-lambda*age};
// linear decay subtracts a fixed fraction per elapsed decay period.
func (s *Scheduler) RunMonthlyDecay(ctx context.Context) (Summary, error) {
	memories, err := s.store.AllMemories(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("monthly decay: list memories: %w", err)
	}

	now := time.Now().UTC()
	sum := Summary{Job: "monthly_decay"}
	for _, m := range memories {
		if m.Retention.DecayFunction == "" || m.Retention.DecayFunction == engram.DecayNone {
			continue
		}
		ageDays := now.Sub(m.CreatedAt).Hours() / 24
		if ageDays <= 0 {
			continue
		}

		next := decayedImportance(m.Metadata.Importance, m.Retention.DecayFunction, ageDays)
		if next >= m.Metadata.Importance {
			continue
		}
		m.Metadata.Importance = next
		if err := s.store.Update(ctx, m); err != nil {
			s.log.Warn("monthly decay: update failed", "memory_id", m.MemoryID, "error", err)
			continue
		}
		sum.Demoted++
	}
	return sum, nil
}

func decayedImportance(importance float64, fn engram.DecayFunction, ageDays float64) float64 {
	switch fn {
	case engram.DecayLogarithmic:
		return importance * math.Exp(-decayLambda*ageDays)
	case engram.DecayLinear:
		fraction := 1 - ageDays*decayLambda
		if fraction < 0 {
			fraction = 0
		}
		return importance * fraction
	default:
		return importance
	}
}
