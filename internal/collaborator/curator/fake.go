package curator

import (
	"context"
	"regexp"
	"strings"

	"github.com/engram-ai/engram/internal/domain/curation"
	"github.com/engram-ai/engram/internal/domain/engram"
)

// Fake is a deterministic curator for tests and deployments without a
// configured model. It splits the user's turn into sentences and applies
// a small set of keyword heuristics to approximate the "note everything,
// score everything" style of the production curator, without ever
// calling out to an external model.
type Fake struct{}

// NewFake returns a deterministic curator.
func NewFake() *Fake { return &Fake{} }

var sentenceSplit = regexp.MustCompile(`[.!?]+\s*`)

var ephemeralKeywords = []string{"raining", "today", "right now", "currently", "mood"}

func (f *Fake) Analyze(_ context.Context, turn Turn) ([]curation.Observation, error) {
	sentences := sentenceSplit.Split(strings.TrimSpace(turn.UserInput), -1)
	observations := make([]curation.Observation, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		observations = append(observations, observationFor(s))
	}
	if len(observations) == 0 {
		observations = append(observations, curation.FallbackObservation(turn.UserInput))
	}
	return observations, nil
}

func observationFor(sentence string) curation.Observation {
	lower := strings.ToLower(sentence)
	ephemeral := 0.1
	storage := curation.StorageFacts
	memType := engram.TypeFact
	for _, kw := range ephemeralKeywords {
		if strings.Contains(lower, kw) {
			ephemeral = 0.9
			storage = curation.StorageTemporary
			memType = engram.TypeEvent
			break
		}
	}
	if strings.Contains(lower, "like") || strings.Contains(lower, "prefer") {
		storage = curation.StoragePreferences
		memType = engram.TypePreference
	}
	return curation.Observation{
		MemoryType:         memType,
		StorageType:        storage,
		Content:            sentence,
		ConfidenceScore:    0.9,
		EphemeralityScore:  ephemeral,
		ContextualValue:    0.7,
		PrivacyLevel:       engram.PrivacyPersonal,
		PrivacySensitivity: curation.SensitivityPersonal,
		Rationale:          "fake curator: heuristic keyword classification",
	}
}
