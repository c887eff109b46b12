package engine

import (
	"context"
	"sort"
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/witness"
)

// EntityStats is an aggregate rollup over every memory an entity
// witnesses, used by the curated stats endpoint (§6.1) and the MCP
// get_memory_stats tool (§4.8) so both transports share one
// implementation of the aggregation.
type EntityStats struct {
	EntityID          string
	TotalMemories     int
	ByMemoryType      map[string]int
	AverageConfidence float64
	AverageImportance float64
	FirstSeen         time.Time
	LastSeen          time.Time
}

// StatsForEntity scans every memory witnessed by entityID and rolls up
// counts, type breakdown, and confidence/importance averages.
func (e *Engine) StatsForEntity(ctx context.Context, entityID string) (EntityStats, error) {
	ids, err := e.store.ScanByEntity(ctx, witness.Normalize(entityID))
	if err != nil {
		return EntityStats{}, err
	}
	sort.Strings(ids)

	stats := EntityStats{EntityID: entityID, ByMemoryType: map[string]int{}}
	var confidenceSum, importanceSum float64
	for _, id := range ids {
		m, err := e.store.Get(ctx, id)
		if err != nil {
			continue // deleted between scan and fetch
		}
		stats.TotalMemories++
		stats.ByMemoryType[string(m.Metadata.MemoryType)]++
		confidenceSum += m.Metadata.Confidence
		importanceSum += m.Metadata.Importance
		if stats.FirstSeen.IsZero() || m.CreatedAt.Before(stats.FirstSeen) {
			stats.FirstSeen = m.CreatedAt
		}
		if m.CreatedAt.After(stats.LastSeen) {
			stats.LastSeen = m.CreatedAt
		}
	}
	if stats.TotalMemories > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.TotalMemories)
		stats.AverageImportance = importanceSum / float64(stats.TotalMemories)
	}
	return stats, nil
}

// RecentMemories returns the n most recently created memories visible
// to requesterID (empty means no witness restriction), newest first.
// Used by the MCP list_recent_memories tool (§4.8), which has no HTTP
// equivalent since §6.1 exposes recency ordering only through this
// natural-language-facing surface.
func (e *Engine) RecentMemories(ctx context.Context, requesterID string, n int) ([]engram.Memory, error) {
	all, err := e.store.AllMemories(ctx)
	if err != nil {
		return nil, err
	}
	var visible []engram.Memory
	for _, m := range all {
		if requesterID != "" && !allowRecent(m, requesterID) {
			continue
		}
		visible = append(visible, m)
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	if n > 0 && len(visible) > n {
		visible = visible[:n]
	}
	return visible, nil
}

func allowRecent(m engram.Memory, requesterID string) bool {
	return witness.Allow(m, requesterID)
}
