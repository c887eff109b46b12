package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/engram-ai/engram/internal/domain/curation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/resilience"
)

// OpenAIConfig configures the production curator client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// breakerTimeout mirrors the embedder collaborator's circuit-breaker window.
const breakerTimeout = 30 * time.Second

// OpenAICurator prompts a chat model to decompose a conversation turn
// into scored observations, in the "note everything, score everything"
// style of the original curation prompt.
type OpenAICurator struct {
	client  *openai.Client
	model   string
	breaker *resilience.Breaker
}

// NewOpenAI constructs a production curator client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAICurator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("curator: OPENAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	return &OpenAICurator{
		client:  openai.NewClientWithConfig(conf),
		model:   cfg.Model,
		breaker: resilience.NewBreaker(5, breakerTimeout),
	}, nil
}

type rawObservation struct {
	MemoryType         string   `json:"memory_type"`
	Content            string   `json:"content"`
	ConfidenceScore    float64  `json:"confidence_score"`
	EphemeralityScore  float64  `json:"ephemerality_score"`
	PrivacySensitivity string   `json:"privacy_sensitivity"`
	ContextualValue    float64  `json:"contextual_value"`
	Tags               []string `json:"tags"`
	Reasoning          string   `json:"reasoning"`
}

type curationResponse struct {
	Observations []rawObservation `json:"observations"`
}

func (c *OpenAICurator) Analyze(ctx context.Context, turn Turn) ([]curation.Observation, error) {
	var out []curation.Observation
	err := c.breaker.Execute(func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(turn)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.2,
		})
		if err != nil {
			return fmt.Errorf("curator: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("curator: no choices returned")
		}
		var parsed curationResponse
		if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
			return fmt.Errorf("curator: parse response: %w", err)
		}
		out = make([]curation.Observation, 0, len(parsed.Observations))
		for _, o := range parsed.Observations {
			out = append(out, toObservation(o))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toObservation(o rawObservation) curation.Observation {
	storageType := curation.StorageType(o.MemoryType)
	return curation.Observation{
		MemoryType:         mapToMemoryType(storageType),
		StorageType:        storageType,
		Content:            o.Content,
		ConfidenceScore:    o.ConfidenceScore,
		EphemeralityScore:  o.EphemeralityScore,
		ContextualValue:    o.ContextualValue,
		PrivacyLevel:       mapToPrivacyLevel(o.PrivacySensitivity),
		PrivacySensitivity: curation.PrivacySensitivity(o.PrivacySensitivity),
		Rationale:          o.Reasoning,
	}
}

func mapToMemoryType(st curation.StorageType) engram.MemoryType {
	switch st {
	case curation.StoragePreferences:
		return engram.TypePreference
	case curation.StorageSkills, curation.StorageRelationships:
		return engram.TypeInsight
	case curation.StorageTemporary:
		return engram.TypeEvent
	case curation.StorageContext:
		return engram.TypeConversation
	default:
		return engram.TypeFact
	}
}

func mapToPrivacyLevel(sensitivity string) engram.PrivacyLevel {
	switch curation.PrivacySensitivity(strings.ToLower(sensitivity)) {
	case curation.SensitivityPublic:
		return engram.PrivacyPublic
	case curation.SensitivityPrivate, curation.SensitivityConfidential:
		return engram.PrivacyPersonal
	default:
		return engram.PrivacyPersonal
	}
}

const systemPrompt = `You are an AI memory curation specialist. Observe and note everything in the conversation turn, no matter how small, and score each observation for confidence, ephemerality, privacy sensitivity, and contextual value. Do not filter; that happens downstream. Respond with valid JSON only, matching:
{"observations":[{"memory_type":"facts|preferences|context|temporary|skills|relationships","content":"...","confidence_score":0.0,"ephemerality_score":0.0,"privacy_sensitivity":"public|personal|private|confidential","contextual_value":0.0,"tags":["..."],"reasoning":"..."}]}`

func buildUserPrompt(turn Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.UserInput, turn.AgentResponse)
	if turn.ConversationContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", turn.ConversationContext)
	}
	if turn.ExistingMemoryCount > 0 {
		fmt.Fprintf(&b, "Note: this entity already has %d stored memories.\n", turn.ExistingMemoryCount)
	}
	if len(turn.PriorityTopics) > 0 {
		fmt.Fprintf(&b, "Priority topics: %s\n", strings.Join(turn.PriorityTopics, ", "))
	}
	if turn.RetentionBias != "" {
		fmt.Fprintf(&b, "Retention bias: %s\n", turn.RetentionBias)
	}
	return b.String()
}
