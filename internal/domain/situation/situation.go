// Package situation implements the derived grouping entity that memories
// sharing participants and context belong to.
package situation

import (
	"sort"
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/witness"
)

// Status is the closed vocabulary for a situation's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusPrivate  Status = "private"
)

// Situation is a derived entity: it is created implicitly by the first
// memory that references its situation_id, and garbage-collected when
// its last memory is deleted (§3.3).
type Situation struct {
	SituationID  string               `json:"situation_id"`
	SituationType engram.SituationType `json:"situation_type"`
	Participants []string             `json:"participants"`
	MemoryIDs    []string             `json:"memory_ids"`
	CreatedAt    time.Time            `json:"created_at"`
	LastActivity time.Time            `json:"last_activity"`
	Status       Status               `json:"status"`
}

// DeriveFromMemories rebuilds a Situation's participants and memory_ids
// from its constituent memories. Participants are the union of
// witnessed_by across all member memories (§3.3).
func DeriveFromMemories(situationID string, memories []engram.Memory) Situation {
	s := Situation{
		SituationID: situationID,
		Status:      StatusActive,
	}
	witnessSets := make([][]string, 0, len(memories))
	for _, m := range memories {
		s.MemoryIDs = append(s.MemoryIDs, m.MemoryID)
		witnessSets = append(witnessSets, m.WitnessedBy)
		if m.SituationType != "" {
			s.SituationType = m.SituationType
		}
		if s.CreatedAt.IsZero() || m.CreatedAt.Before(s.CreatedAt) {
			s.CreatedAt = m.CreatedAt
		}
		if m.CreatedAt.After(s.LastActivity) {
			s.LastActivity = m.CreatedAt
		}
	}
	s.Participants = witness.Union(witnessSets...)
	sort.Strings(s.MemoryIDs)
	return s
}

// ThreadNode reconstructs a comment-thread position from a memory's
// causality.parent_memories link, expressed with existing fields rather
// than introducing a dedicated comment-thread type.
type ThreadNode struct {
	Memory   engram.Memory
	Children []*ThreadNode
}

// ThreadOf reconstructs a parent/child tree of memories using
// causality.parent_memories as the thread-parent link. Memories with no
// parent, or whose parent is not present in the input set, become roots.
func ThreadOf(memories []engram.Memory) []*ThreadNode {
	nodes := make(map[string]*ThreadNode, len(memories))
	for _, m := range memories {
		nodes[m.MemoryID] = &ThreadNode{Memory: m}
	}
	var roots []*ThreadNode
	for _, m := range memories {
		node := nodes[m.MemoryID]
		parentID := ""
		if len(m.Causality.ParentMemories) > 0 {
			parentID = m.Causality.ParentMemories[0]
		}
		parent, ok := nodes[parentID]
		if parentID == "" || !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
