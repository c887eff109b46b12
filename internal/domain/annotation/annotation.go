// Package annotation implements the append-only note attached to a memory.
package annotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/engram-ai/engram/internal/domain/engram"
)

// Annotation is an append-only record attached to a memory_id. Annotations
// never mutate the parent memory (spec §3.2 invariant 6).
type Annotation struct {
	AnnotatorID   string    `json:"annotator_id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Vector        []float32 `json:"vector,omitempty"`
	EvidenceLinks []string  `json:"evidence_links,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
}

// Validate checks the required fields of an annotation before it is
// appended to a parent memory.
func (a Annotation) Validate() error {
	if strings.TrimSpace(a.AnnotatorID) == "" {
		return fmt.Errorf("%w: annotator_id is required", engram.ErrValidationField)
	}
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("%w: type is required", engram.ErrValidationField)
	}
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("%w: content is required", engram.ErrValidationField)
	}
	if a.Confidence != 0 {
		if err := engram.ValidateFraction("confidence", a.Confidence); err != nil {
			return err
		}
	}
	return nil
}
