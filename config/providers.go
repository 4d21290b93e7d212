package config

import (
	"fmt"
	"time"

	"github.com/gaesaju/gaesaju/ai"
)

// ConfigurationError marks a fatal startup misconfiguration. Provider
// resolution runs exactly once at startup; the process must refuse to
// serve AI-enhanced requests rather than start half-configured.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// ResolvedProvider is one backend's immutable runtime configuration.
// Invariant: Enabled implies a non-empty APIKey.
type ResolvedProvider struct {
	ID      ai.ProviderID
	Enabled bool
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ResolvedAI is the outcome of provider resolution: the default provider
// and every known backend's settings, enabled or not.
type ResolvedAI struct {
	Default   ai.ProviderID
	Providers map[ai.ProviderID]ResolvedProvider
}

// Fallback returns the enabled provider that is not the default, if any.
func (r *ResolvedAI) Fallback() (ai.ProviderID, bool) {
	for id, p := range r.Providers {
		if p.Enabled && id != r.Default {
			return id, true
		}
	}
	return "", false
}

// autoPriority is the static lowest-cost-first order used under "auto".
// Selection is deterministic: the first entry with a credential wins.
var autoPriority = []ai.ProviderID{ai.ProviderGemini, ai.ProviderOpenAI}

// SelectProvider picks the default provider from the set with present
// credentials. Pure function so the policy is unit-testable without
// touching the environment.
func SelectProvider(available []ai.ProviderID) (ai.ProviderID, bool) {
	present := make(map[ai.ProviderID]bool, len(available))
	for _, id := range available {
		present[id] = true
	}
	for _, id := range autoPriority {
		if present[id] {
			return id, true
		}
	}
	return "", false
}

// ResolveProviders turns the raw AI config into the immutable provider set
// the service manager is constructed with. It fails when "auto" finds no
// credential at all, or when a specifically requested default lacks one.
func (c *AIConfig) ResolveProviders() (*ResolvedAI, error) {
	providers := map[ai.ProviderID]ResolvedProvider{
		ai.ProviderGemini: {
			ID:      ai.ProviderGemini,
			Enabled: c.Gemini.APIKey != "",
			APIKey:  c.Gemini.APIKey,
			Model:   c.Gemini.Model,
			Timeout: c.Gemini.Timeout,
		},
		ai.ProviderOpenAI: {
			ID:      ai.ProviderOpenAI,
			Enabled: c.OpenAI.APIKey != "",
			APIKey:  c.OpenAI.APIKey,
			Model:   c.OpenAI.Model,
			Timeout: c.OpenAI.Timeout,
		},
	}

	var available []ai.ProviderID
	for _, id := range autoPriority {
		if providers[id].Enabled {
			available = append(available, id)
		}
	}

	var def ai.ProviderID
	switch c.DefaultProvider {
	case "", "auto":
		selected, ok := SelectProvider(available)
		if !ok {
			return nil, &ConfigurationError{
				Message: "default provider is \"auto\" but no provider credential is configured",
			}
		}
		def = selected
	default:
		def = ai.ProviderID(c.DefaultProvider)
		p, known := providers[def]
		if !known {
			return nil, &ConfigurationError{
				Message: fmt.Sprintf("unknown default provider %q", c.DefaultProvider),
			}
		}
		if !p.Enabled {
			return nil, &ConfigurationError{
				Message: fmt.Sprintf("default provider %q has no credential configured", c.DefaultProvider),
			}
		}
	}

	return &ResolvedAI{Default: def, Providers: providers}, nil
}
