package ai

import (
	"time"

	"github.com/gaesaju/gaesaju/saju"
)

// ProviderID identifies an LLM backend. It is used as a map key across the
// manager, breaker, cache, and monitoring layers and never changes after
// startup.
type ProviderID string

const (
	ProviderGemini ProviderID = "gemini"
	ProviderOpenAI ProviderID = "openai"

	// ProviderDefault selects whichever provider configuration resolution
	// picked at startup.
	ProviderDefault ProviderID = "default"
)

// Gender of the requesting user, when supplied.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Tone requested for the interpretation text.
type Tone string

const (
	ToneWarm    Tone = "warm"
	ToneDirect  Tone = "direct"
	TonePlayful Tone = "playful"
	ToneFormal  Tone = "formal"
)

// Interest is a topic the user wants the interpretation to emphasize.
type Interest string

const (
	InterestCareer        Interest = "career"
	InterestLove          Interest = "love"
	InterestHealth        Interest = "health"
	InterestWealth        Interest = "wealth"
	InterestRelationships Interest = "relationships"
)

// UserProfile carries optional personalization inputs. All fields may be
// zero; the prompt builder skips empty ones.
type UserProfile struct {
	Age       int        `json:"age,omitempty"`
	Gender    Gender     `json:"gender,omitempty"`
	Interests []Interest `json:"interests,omitempty"`
	Tone      Tone       `json:"tone,omitempty"`
}

// InterpretationRequest is the value object the pipeline operates on. It is
// normalized into a cache fingerprint, so field order and omitempty tags
// matter for key stability.
type InterpretationRequest struct {
	SajuResult  *saju.Result `json:"sajuResult"`
	UserProfile *UserProfile `json:"userProfile,omitempty"`
}

// EnhancedInterpretation is the seven-section interpretation produced by a
// provider.
type EnhancedInterpretation struct {
	Personality      string   `json:"personality"`
	Strengths        []string `json:"strengths"`
	Challenges       []string `json:"challenges"`
	Summary          string   `json:"summary"`
	LifeAdvice       string   `json:"lifeAdvice"`
	CareerGuidance   string   `json:"careerGuidance"`
	RelationshipTips []string `json:"relationshipTips"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	Model            string `json:"model"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Cached           bool   `json:"cached"`
}

// InterpretationResponse is the final, immutable pipeline output. Cached
// copies differ only in Metadata.Cached.
type InterpretationResponse struct {
	Enhanced EnhancedInterpretation `json:"enhancedInterpretation"`
	Metadata ResponseMetadata       `json:"metadata"`
}

// ProviderRequest is the provider-agnostic completion request handed to a
// Client. The enhancer builds it from an InterpretationRequest.
type ProviderRequest struct {
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt"`
	UserPrompt   string        `json:"user_prompt"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	Temperature  float32       `json:"temperature,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`
}

// ProviderUsage is the token accounting reported by a provider, when
// available.
type ProviderUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// ProviderResponse is the raw structured payload returned by a Client.
type ProviderResponse struct {
	Sections EnhancedInterpretation `json:"sections"`
	Model    string                 `json:"model"`
	Usage    ProviderUsage          `json:"usage,omitempty"`
}
