package engine

import (
	"math"
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// recencyMultiplier implements the boost_recent Open Question resolution
// (SPEC_FULL.md): multiplicative, similarity_score *= 1 + recency_bonus,
// recency_bonus = 0.15 * e^{-age_days/30}; applyBoostRecent caps the
// boosted score at 1.0.
func recencyMultiplier(m engram.Memory, now time.Time) float64 {
	ageDays := now.Sub(m.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	bonus := 0.15 * math.Exp(-ageDays/30)
	if bonus > 1.0 {
		bonus = 1.0
	}
	return 1.0 + bonus
}

// cosineFloat32 computes cosine similarity between two equal-length
// vectors, used by MMR's redundancy term against already-selected results.
func cosineFloat32(a, b []float32) float64 {
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

// mmrSelect implements Maximal Marginal Relevance diversification over a
// candidate pool (§4.2): iteratively picks the candidate maximizing
// lambda*relevance - (1-lambda)*max_similarity_to_selected, until topK
// results are chosen or the pool is exhausted.
func mmrSelect(candidates []engram.ScoredMemory, topK int, lambda float64) []engram.ScoredMemory {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}
	if topK >= len(candidates) {
		topK = len(candidates)
	}

	pool := make([]engram.ScoredMemory, len(candidates))
	copy(pool, candidates)
	selected := make([]engram.ScoredMemory, 0, topK)
	chosen := make([]bool, len(pool))

	for len(selected) < topK {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, c := range pool {
			if chosen[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				if c.Vector == nil || s.Vector == nil {
					continue
				}
				sim := cosineFloat32(c.Vector, s.Vector)
				if sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*c.SimilarityScore - (1-lambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		chosen[bestIdx] = true
		selected = append(selected, pool[bestIdx])
	}
	return selected
}
