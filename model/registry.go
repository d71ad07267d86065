// Package model manages LLM endpoint configuration and health. The
// registry maps model identifiers to provider endpoints and tracks
// per-endpoint circuit-breaker state so the invoker can skip backends
// that are currently failing.
package model

import (
	"sort"
	"strings"
	"sync"
)

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the backend adapter name (openrouter, anthropic, ollama).
	Provider string `yaml:"provider" json:"provider"`

	// URL is the API base URL; empty uses the provider default.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `yaml:"model" json:"model"`

	// MaxTokens is the response token cap; 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// Fallbacks lists endpoint names to try when this one fails.
	Fallbacks []string `yaml:"fallbacks,omitempty" json:"fallbacks,omitempty"`
}

// Registry maps model identifiers to endpoints.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*EndpointConfig
	health    *healthState
}

// NewRegistry creates a registry with the given endpoints.
func NewRegistry(endpoints map[string]*EndpointConfig) *Registry {
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{endpoints: endpoints}
}

// NewDefaultRegistry returns a registry covering the bundled persona
// model identifiers. Persona models use OpenRouter-style ids, which the
// openrouter provider accepts directly.
func NewDefaultRegistry() *Registry {
	return NewRegistry(map[string]*EndpointConfig{
		"anthropic/claude-3.5-sonnet": {
			Provider: "openrouter",
			Model:    "anthropic/claude-3.5-sonnet",
		},
		"anthropic/claude-3.5-haiku": {
			Provider: "openrouter",
			Model:    "anthropic/claude-3.5-haiku",
		},
		"openai/gpt-4o": {
			Provider: "openrouter",
			Model:    "openai/gpt-4o",
		},
		"local": {
			Provider: "ollama",
			URL:      "http://localhost:11434/v1",
			Model:    "qwen2.5-coder:14b",
		},
	})
}

// Endpoint returns the configuration for a model identifier. Unknown
// OpenRouter-style identifiers (containing a slash) resolve to a synthetic
// openrouter endpoint so persona files can name any hosted model without
// pre-registration.
func (r *Registry) Endpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ep, ok := r.endpoints[name]; ok {
		return ep
	}
	if strings.Contains(name, "/") {
		return &EndpointConfig{Provider: "openrouter", Model: name}
	}
	return nil
}

// SetEndpoint adds or replaces an endpoint.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// Chain returns the model name followed by its configured fallbacks,
// filtered to endpoints whose circuit is closed. If everything is
// unavailable the unfiltered chain is returned: better to try something
// than nothing.
func (r *Registry) Chain(name string) []string {
	chain := []string{name}
	if ep := r.Endpoint(name); ep != nil {
		chain = append(chain, ep.Fallbacks...)
	}

	available := make([]string, 0, len(chain))
	for _, n := range chain {
		if r.IsEndpointAvailable(n) {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		return chain
	}
	return available
}

// ListEndpoints returns all registered endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
