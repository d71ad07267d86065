package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/policy"
	"github.com/gatekeep-dev/gatekeep/prompt"
)

func testPersona() *persona.Persona {
	return &persona.Persona{
		Name:      "sentinel",
		Character: "Sentinel",
		Domain:    "application security",
		Traits:    "Professionally paranoid.",
	}
}

func testRules() *policy.EffectiveRuleSet {
	return &policy.EffectiveRuleSet{
		Persona: "sentinel",
		Policies: []policy.GovernancePolicy{
			{
				Name: "security.yaml",
				Sections: map[string]any{
					"authentication": map[string]any{"mfa": "required"},
				},
			},
		},
		Standards: []policy.Standard{
			{
				ID:      "owasp-top10",
				Name:    "OWASP Top 10",
				Version: "2021",
				Domains: []policy.StandardDomain{
					{
						Name: "a01-access",
						Controls: []policy.Control{
							{ID: "A01-1", Requirement: "Deny by default", Severity: "critical"},
						},
					},
				},
			},
		},
	}
}

func TestCompose_SectionsAndOrder(t *testing.T) {
	payload, err := prompt.Compose(testPersona(), testRules(), "Is this safe?", "", prompt.Options{})
	require.NoError(t, err)

	sys := payload.System
	assert.Contains(t, sys, "You are Sentinel, providing application security guidance.")
	assert.Contains(t, sys, "CHARACTER TRAITS:")
	assert.Contains(t, sys, "ORGANIZATIONAL GOVERNANCE:")
	assert.Contains(t, sys, "mfa: required")
	assert.Contains(t, sys, "REGULATORY STANDARDS (MUST ENFORCE):")
	assert.Contains(t, sys, "- [A01-1] (critical) Deny by default")
	assert.Contains(t, sys, "VERDICT: APPROVE")

	// Identity precedes policies, policies precede standards.
	assert.Less(t, strings.Index(sys, "You are Sentinel"), strings.Index(sys, "ORGANIZATIONAL GOVERNANCE"))
	assert.Less(t, strings.Index(sys, "ORGANIZATIONAL GOVERNANCE"), strings.Index(sys, "REGULATORY STANDARDS"))

	assert.Equal(t, "Is this safe?", payload.User)
}

func TestCompose_ContextPrepended(t *testing.T) {
	payload, err := prompt.Compose(testPersona(), testRules(), "Is this safe?", "login handler diff", prompt.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Context: login handler diff\n\nIs this safe?", payload.User)
}

func TestCompose_Pure(t *testing.T) {
	first, err := prompt.Compose(testPersona(), testRules(), "Is this safe?", "ctx", prompt.Options{})
	require.NoError(t, err)
	second, err := prompt.Compose(testPersona(), testRules(), "Is this safe?", "ctx", prompt.Options{})
	require.NoError(t, err)

	assert.Equal(t, first.System, second.System)
	assert.Equal(t, first.User, second.User)
}

func TestCompose_InputValidation(t *testing.T) {
	_, err := prompt.Compose(nil, testRules(), "q", "", prompt.Options{})
	assert.Error(t, err)

	_, err = prompt.Compose(testPersona(), testRules(), "   ", "", prompt.Options{})
	assert.Error(t, err)
}

func TestCompose_NoRules(t *testing.T) {
	payload, err := prompt.Compose(testPersona(), nil, "hello", "", prompt.Options{})
	require.NoError(t, err)
	assert.NotContains(t, payload.System, "ORGANIZATIONAL GOVERNANCE")
	assert.NotContains(t, payload.System, "REGULATORY STANDARDS")
	assert.Contains(t, payload.System, "You are Sentinel")
}

func TestCompose_TruncationDropsStandardsFirst(t *testing.T) {
	rules := testRules()
	// Inflate the standard so it alone blows the budget.
	big := make([]policy.Control, 200)
	for i := range big {
		big[i] = policy.Control{ID: "X", Requirement: strings.Repeat("x", 50), Severity: "low"}
	}
	rules.Standards[0].Domains[0].Controls = big

	payload, err := prompt.Compose(testPersona(), rules, "Is this safe?", "", prompt.Options{
		MaxSystemBytes: 2048,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(payload.System), 2048)
	// Standards dropped, policies kept.
	assert.NotContains(t, payload.System, "REGULATORY STANDARDS")
	assert.Contains(t, payload.System, "ORGANIZATIONAL GOVERNANCE")
	assert.Contains(t, payload.System, "truncated")
	// The question itself is never truncated.
	assert.Equal(t, "Is this safe?", payload.User)
}

func TestCompose_TruncationPreservesIdentity(t *testing.T) {
	rules := testRules()
	big := make([]policy.Control, 500)
	for i := range big {
		big[i] = policy.Control{ID: "X", Requirement: strings.Repeat("x", 60), Severity: "low"}
	}
	rules.Standards[0].Domains[0].Controls = big

	payload, err := prompt.Compose(testPersona(), rules, "Is this safe?", "", prompt.Options{
		MaxSystemBytes: 1024,
	})
	require.NoError(t, err)
	assert.Contains(t, payload.System, "You are Sentinel")
	assert.Contains(t, payload.System, "RESPONSE STYLE")
}
