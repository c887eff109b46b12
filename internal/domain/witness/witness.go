// Package witness implements entity-ID normalization and the access
// predicate that governs which requesters may see a given memory.
package witness

import (
	"strings"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// Normalize canonicalizes an entity ID by stripping hyphens and folding
// case (§3.2 invariant 8), so "Agent-42" and "agent42" address the same
// witness. Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(entityID string) string {
	stripped := strings.ReplaceAll(entityID, "-", "")
	return strings.ToLower(stripped)
}

// NormalizeAll normalizes every entry of a witness or requester list.
func NormalizeAll(entityIDs []string) []string {
	out := make([]string, len(entityIDs))
	for i, id := range entityIDs {
		out[i] = Normalize(id)
	}
	return out
}

// Contains reports whether normalized entityID appears in the normalized
// witness set.
func Contains(witnessedBy []string, entityID string) bool {
	target := Normalize(entityID)
	for _, w := range witnessedBy {
		if Normalize(w) == target {
			return true
		}
	}
	return false
}

// Allow implements the §4.4 access predicate: a requester may see a
// memory if, and only if, the memory is public, or the requester
// normalizes to one of the memory's witnesses. A public memory is
// visible to any requester, including the empty/anonymous one.
func Allow(m engram.Memory, requesterID string) bool {
	if m.PrivacyLevel == engram.PrivacyPublic {
		return true
	}
	if requesterID == "" {
		return false
	}
	return Contains(m.WitnessedBy, requesterID)
}

// AllowAny reports whether any of the requester IDs may see the memory,
// used by multi-entity retrieval (§4.3) where a query is issued on
// behalf of a set of entities and a memory is included if it is visible
// to at least one of them.
func AllowAny(m engram.Memory, requesterIDs []string) bool {
	if m.PrivacyLevel == engram.PrivacyPublic {
		return true
	}
	for _, r := range requesterIDs {
		if Contains(m.WitnessedBy, r) {
			return true
		}
	}
	return false
}

// Union returns the deduplicated, normalized union of witness sets,
// used to derive a Situation's participant list.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, id := range set {
			n := Normalize(id)
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
