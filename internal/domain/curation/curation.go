// Package curation implements the domain types the AI-curation pipeline
// (C6) uses to turn a conversation turn into admitted memories: the
// transient observation the curator emits, the admission rule, and the
// retention-policy table that maps a storage_type to a TTL.
package curation

import (
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// StorageType is the curator's own vocabulary, distinct from
// engram.MemoryType (§6.3): the curator classifies observations by what
// kind of durable value they carry, not by the note-taking shape.
type StorageType string

const (
	StorageFacts         StorageType = "facts"
	StoragePreferences   StorageType = "preferences"
	StorageContext       StorageType = "context"
	StorageTemporary     StorageType = "temporary"
	StorageSkills        StorageType = "skills"
	StorageRelationships StorageType = "relationships"
)

// RetentionPolicy is the closed vocabulary for how long an admitted
// observation is kept before the cleanup scheduler expires it.
type RetentionPolicy string

const (
	RetentionPermanent   RetentionPolicy = "permanent"
	RetentionLongTerm    RetentionPolicy = "long_term"
	RetentionMediumTerm  RetentionPolicy = "medium_term"
	RetentionShortTerm   RetentionPolicy = "short_term"
	RetentionSessionOnly RetentionPolicy = "session_only"
)

// PrivacySensitivity is an informational field carried on observations,
// additive to metadata.privacy_level (see SPEC_FULL.md SUPPLEMENTED FEATURES).
type PrivacySensitivity string

const (
	SensitivityPublic       PrivacySensitivity = "public"
	SensitivityPersonal     PrivacySensitivity = "personal"
	SensitivityPrivate      PrivacySensitivity = "private"
	SensitivityConfidential PrivacySensitivity = "confidential"
)

// retentionPolicyByStorage is the default mapping from §4.3 step 3.
var retentionPolicyByStorage = map[StorageType]RetentionPolicy{
	StorageFacts:         RetentionPermanent,
	StoragePreferences:   RetentionLongTerm,
	StorageSkills:        RetentionLongTerm,
	StorageRelationships: RetentionLongTerm,
	StorageContext:       RetentionMediumTerm,
	StorageTemporary:     RetentionShortTerm,
}

// ttlByPolicy maps a retention policy to its TTL. RetentionPermanent and
// RetentionSessionOnly are absent: permanent memories never expire, and
// session_only gets sessionTTL, which TTLFor handles separately.
var ttlByPolicy = map[RetentionPolicy]time.Duration{
	RetentionShortTerm:  7 * 24 * time.Hour,
	RetentionMediumTerm: 30 * 24 * time.Hour,
	RetentionLongTerm:   365 * 24 * time.Hour,
}

// sessionTTL is the default session_only lifetime, matching the
// original service's "4h" session window.
const sessionTTL = 4 * time.Hour

// RetentionPolicyFor maps a storage_type to its default retention policy.
func RetentionPolicyFor(st StorageType) RetentionPolicy {
	if p, ok := retentionPolicyByStorage[st]; ok {
		return p
	}
	return RetentionMediumTerm
}

// TTLFor returns the TTL implied by a retention policy, or 0 for
// policies that never expire on a fixed clock (permanent).
func TTLFor(p RetentionPolicy) time.Duration {
	switch p {
	case RetentionPermanent:
		return 0
	case RetentionSessionOnly:
		return sessionTTL
	default:
		if d, ok := ttlByPolicy[p]; ok {
			return d
		}
		return ttlByPolicy[RetentionMediumTerm]
	}
}

// Observation is a transient candidate memory emitted by the curator
// client (C2); it is stored only if it survives the admission rule.
type Observation struct {
	MemoryType         engram.MemoryType  `json:"memory_type"`
	StorageType        StorageType        `json:"storage_type"`
	Content            string             `json:"content"`
	ConfidenceScore    float64            `json:"confidence_score"`
	EphemeralityScore  float64            `json:"ephemerality_score"`
	ContextualValue    float64            `json:"contextual_value"`
	PrivacyLevel       engram.PrivacyLevel `json:"privacy_level"`
	PrivacySensitivity PrivacySensitivity `json:"privacy_sensitivity,omitempty"`
	Rationale          string             `json:"rationale"`
	RequiresReview     bool               `json:"requires_review,omitempty"`
}

// Admission-rule thresholds (§4.3 step 2).
const (
	MaxEphemeralityForAdmission = 0.8
	MinConfidenceForAdmission   = 0.3
	MinContextualValueForAdmission = 0.2
)

// Admit applies the admission rule to a single observation: drop if too
// ephemeral, too low confidence, or too low contextual value.
func Admit(o Observation) bool {
	if o.EphemeralityScore > MaxEphemeralityForAdmission {
		return false
	}
	if o.ConfidenceScore < MinConfidenceForAdmission {
		return false
	}
	if o.ContextualValue < MinContextualValueForAdmission {
		return false
	}
	return true
}

// FallbackObservation is the degraded observation admitted when the
// curator call itself fails (§7 UpstreamError local recovery): the
// turn is admitted verbatim as a single low-confidence context memory
// flagged for human review.
func FallbackObservation(turnText string) Observation {
	return Observation{
		MemoryType:      engram.TypeEvent,
		StorageType:     StorageContext,
		Content:         turnText,
		ConfidenceScore: 0.3,
		ContextualValue: MinContextualValueForAdmission,
		PrivacyLevel:    engram.PrivacyPersonal,
		Rationale:       "curator upstream call failed; admitted verbatim pending review",
		RequiresReview:  true,
	}
}

// Decision records one observation's outcome for the curation report.
type Decision struct {
	Observation Observation `json:"observation"`
	Admitted    bool        `json:"admitted"`
	Reason      string      `json:"reason,omitempty"`
	MemoryID    string      `json:"memory_id,omitempty"`
	Retention   RetentionPolicy `json:"retention_policy,omitempty"`
}
