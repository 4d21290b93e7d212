package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/gaesaju/gaesaju/ai"
)

const (
	// defaultMaxTokens bounds the completion; the response schema is small
	// so this leaves generous headroom.
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7

	// promptTokenBudget caps the user prompt. Charts are small, so this
	// only bites when the precomputed interpretation text is very long.
	promptTokenBudget = 3000
)

var systemPrompt = strings.TrimSpace(`
You are a professional saju (Korean Four Pillars of Destiny) counselor.
You receive a computed saju chart and a short user profile, and you write a
personalized, encouraging interpretation in Korean.

Respond with a single JSON object using exactly these keys:
  "personality":      string, the user's character as read from the chart
  "strengths":        array of 3 to 5 short strings
  "challenges":       array of 2 to 4 short strings
  "summary":          string, 2-3 sentences
  "lifeAdvice":       string
  "careerGuidance":   string
  "relationshipTips": array of 2 to 4 short strings

Do not add keys, markdown, or commentary outside the JSON object.
`)

// PromptBuilder renders interpretation requests into provider payloads and
// enforces the prompt token budget.
type PromptBuilder struct {
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewPromptBuilder returns a builder. The token encoder is loaded lazily on
// first use.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build renders the chart and profile into a provider request. Model and
// timeout are left empty for the manager to fill from provider config.
func (b *PromptBuilder) Build(req *ai.InterpretationRequest) *ai.ProviderRequest {
	return &ai.ProviderRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   b.userPrompt(req),
		MaxTokens:    defaultMaxTokens,
		Temperature:  defaultTemperature,
	}
}

func (b *PromptBuilder) userPrompt(req *ai.InterpretationRequest) string {
	var sb strings.Builder

	sb.WriteString("Saju chart:\n")
	r := req.SajuResult
	pillars := []struct {
		name string
		p    fmt.Stringer
	}{
		{"year", r.Pillars.Year},
		{"month", r.Pillars.Month},
		{"day", r.Pillars.Day},
		{"hour", r.Pillars.Hour},
	}
	for _, pl := range pillars {
		fmt.Fprintf(&sb, "- %s pillar: %s\n", pl.name, pl.p.String())
	}
	if len(r.Elements) > 0 {
		names := make([]string, 0, len(r.Elements))
		for name := range r.Elements {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("- element balance:")
		for _, name := range names {
			fmt.Fprintf(&sb, " %s=%d", name, r.Elements[name])
		}
		sb.WriteString("\n")
	}
	if r.DominantElem != "" {
		fmt.Fprintf(&sb, "- dominant element: %s\n", r.DominantElem)
	}
	if r.ZodiacAnimal != "" {
		fmt.Fprintf(&sb, "- zodiac animal: %s\n", r.ZodiacAnimal)
	}

	if p := req.UserProfile; p != nil {
		sb.WriteString("\nUser profile:\n")
		if p.Age > 0 {
			fmt.Fprintf(&sb, "- age: %d\n", p.Age)
		}
		if p.Gender != "" {
			fmt.Fprintf(&sb, "- gender: %s\n", p.Gender)
		}
		if len(p.Interests) > 0 {
			interests := make([]string, len(p.Interests))
			for i, in := range p.Interests {
				interests[i] = string(in)
			}
			fmt.Fprintf(&sb, "- interests: %s\n", strings.Join(interests, ", "))
		}
		if p.Tone != "" {
			fmt.Fprintf(&sb, "- preferred tone: %s\n", p.Tone)
		}
	}

	if r.Interpretation != "" {
		base := r.Interpretation
		// The precomputed interpretation is supporting context; trim it
		// rather than blowing the budget.
		structural := b.CountTokens(sb.String())
		if budget := promptTokenBudget - structural; budget > 0 {
			base = b.truncateToTokens(base, budget)
		} else {
			base = ""
		}
		if base != "" {
			sb.WriteString("\nBase interpretation to refine:\n")
			sb.WriteString(base)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// CountTokens estimates the token count of text. Falls back to a
// bytes-per-token heuristic if the encoding cannot be loaded.
func (b *PromptBuilder) CountTokens(text string) int {
	if enc := b.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

func (b *PromptBuilder) truncateToTokens(text string, budget int) string {
	enc := b.encoding()
	if enc == nil {
		if max := budget * 4; len(text) > max {
			return text[:max]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

func (b *PromptBuilder) encoding() *tiktoken.Tiktoken {
	b.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			b.enc = enc
		}
	})
	return b.enc
}
