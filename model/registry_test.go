package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/model"
)

func TestRegistry_Endpoint(t *testing.T) {
	r := model.NewRegistry(map[string]*model.EndpointConfig{
		"local": {Provider: "ollama", URL: "http://localhost:11434/v1", Model: "qwen2.5-coder:14b"},
	})

	ep := r.Endpoint("local")
	require.NotNil(t, ep)
	assert.Equal(t, "ollama", ep.Provider)

	// OpenRouter-style ids resolve without pre-registration.
	ep = r.Endpoint("mistralai/mistral-large")
	require.NotNil(t, ep)
	assert.Equal(t, "openrouter", ep.Provider)
	assert.Equal(t, "mistralai/mistral-large", ep.Model)

	assert.Nil(t, r.Endpoint("unknown"))
}

func TestRegistry_SetEndpointOverrides(t *testing.T) {
	r := model.NewDefaultRegistry()
	r.SetEndpoint("anthropic/claude-3.5-sonnet", &model.EndpointConfig{
		Provider: "ollama",
		URL:      "http://localhost:11434/v1",
		Model:    "qwen2.5-coder:14b",
	})

	ep := r.Endpoint("anthropic/claude-3.5-sonnet")
	require.NotNil(t, ep)
	assert.Equal(t, "ollama", ep.Provider)
}

func TestRegistry_CircuitBreaker(t *testing.T) {
	r := model.NewRegistry(map[string]*model.EndpointConfig{
		"primary": {Provider: "openrouter", Model: "primary"},
	})

	assert.True(t, r.IsEndpointAvailable("primary"))

	// Below the threshold the endpoint stays available.
	r.MarkEndpointFailure("primary")
	r.MarkEndpointFailure("primary")
	assert.True(t, r.IsEndpointAvailable("primary"))

	// The third consecutive failure opens the circuit.
	r.MarkEndpointFailure("primary")
	assert.False(t, r.IsEndpointAvailable("primary"))

	health := r.GetEndpointHealth("primary")
	require.NotNil(t, health)
	assert.True(t, health.CircuitOpen)
	assert.Equal(t, 3, health.FailureCount)

	// A success closes it again.
	r.MarkEndpointSuccess("primary")
	assert.True(t, r.IsEndpointAvailable("primary"))
	health = r.GetEndpointHealth("primary")
	assert.False(t, health.CircuitOpen)
	assert.Equal(t, 0, health.FailureCount)
}

func TestRegistry_SuccessResetsFailureCount(t *testing.T) {
	r := model.NewRegistry(nil)

	r.MarkEndpointFailure("ep")
	r.MarkEndpointFailure("ep")
	r.MarkEndpointSuccess("ep")
	r.MarkEndpointFailure("ep")
	r.MarkEndpointFailure("ep")

	// Interleaved success restarted the count; circuit stays closed.
	assert.True(t, r.IsEndpointAvailable("ep"))
}

func TestRegistry_ChainFiltersOpenCircuits(t *testing.T) {
	r := model.NewRegistry(map[string]*model.EndpointConfig{
		"primary":  {Provider: "openrouter", Model: "primary", Fallbacks: []string{"fallback"}},
		"fallback": {Provider: "openrouter", Model: "fallback"},
	})

	assert.Equal(t, []string{"primary", "fallback"}, r.Chain("primary"))

	for i := 0; i < 3; i++ {
		r.MarkEndpointFailure("primary")
	}
	assert.Equal(t, []string{"fallback"}, r.Chain("primary"))

	// Everything down: the unfiltered chain comes back rather than nothing.
	for i := 0; i < 3; i++ {
		r.MarkEndpointFailure("fallback")
	}
	assert.Equal(t, []string{"primary", "fallback"}, r.Chain("primary"))
}

func TestRegistry_ListEndpoints(t *testing.T) {
	r := model.NewDefaultRegistry()
	names := r.ListEndpoints()
	assert.Contains(t, names, "local")
	assert.Contains(t, names, "anthropic/claude-3.5-sonnet")
	assert.IsType(t, []string{}, names)
}
