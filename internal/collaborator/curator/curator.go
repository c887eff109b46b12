// Package curator implements C2, the pluggable observer collaborator
// that decomposes a conversation turn into scored candidate memories.
package curator

import (
	"context"

	"github.com/engram-ai/engram/internal/domain/curation"
)

// Turn is the input to a curation analysis (§4.3): the two sides of a
// conversation exchange plus optional context and preferences.
type Turn struct {
	UserInput            string
	AgentResponse        string
	ConversationContext  string
	ExistingMemoryCount  int
	PriorityTopics       []string
	RetentionBias        string
	PrivacySensitivity   string
}

// Curator emits one or more scored observations for a conversation turn.
// Implementations are expected to be safe for concurrent use.
type Curator interface {
	Analyze(ctx context.Context, turn Turn) ([]curation.Observation, error)
}
