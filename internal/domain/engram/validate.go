package engram

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewMemoryID generates a memory identifier of the form "mem-<12 hex>"
// (§3.1). The twelve hex characters are the low 48 bits of a ULID's
// randomness component, so the IDs are random and do not sort in
// creation order.
func NewMemoryID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	raw := id.Bytes()
	return fmt.Sprintf("mem-%x", raw[10:16])
}

// Validate checks every invariant in spec §3.2 that Validate can check
// without consulting the store; the vector dimension is checked via
// ValidateVector when vectorDim > 0.
func (m Memory) Validate(vectorDim int) error {
	if strings.TrimSpace(m.Content.Text) == "" {
		return fmt.Errorf("%w: content.text must not be empty", ErrValidationField)
	}
	if len(m.WitnessedBy) == 0 {
		return fmt.Errorf("%w: witnessed_by must contain at least one entity", ErrValidationField)
	}
	if m.SituationID == "" {
		return fmt.Errorf("%w: situation_id is required", ErrValidationField)
	}
	if err := ValidatePrivacyLevel(m.PrivacyLevel); err != nil {
		return err
	}
	if m.Metadata.MemoryType != "" {
		if err := ValidateMemoryType(m.Metadata.MemoryType); err != nil {
			return err
		}
	}
	if m.Metadata.Confidence != 0 {
		if err := ValidateFraction("metadata.confidence", m.Metadata.Confidence); err != nil {
			return err
		}
	}
	if m.Metadata.Importance != 0 {
		if err := ValidateFraction("metadata.importance", m.Metadata.Importance); err != nil {
			return err
		}
	}
	if err := ValidateCausality(m.Causality); err != nil {
		return err
	}
	if vectorDim > 0 {
		if err := ValidateVector(m.Vector, vectorDim); err != nil {
			return err
		}
	}
	return nil
}

// Age returns how long ago the memory was created, relative to now.
func (m Memory) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// Expired reports whether the memory's TTL has elapsed as of now.
// A zero TTLSeconds means the memory never expires.
func (m Memory) Expired(now time.Time) bool {
	if m.Retention.TTLSeconds <= 0 {
		return false
	}
	deadline := m.CreatedAt.Add(time.Duration(m.Retention.TTLSeconds) * time.Second)
	return now.After(deadline)
}
