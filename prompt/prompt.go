// Package prompt composes persona identity, effective governance rules,
// and user input into a structured model request. Composition is a pure
// function: identical inputs produce byte-identical payloads, which makes
// test reproducibility and caller-side caching possible.
package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/policy"
)

// DefaultMaxSystemBytes bounds the serialized system instructions. Rule
// content beyond the budget is truncated; the user's own question never is.
const DefaultMaxSystemBytes = 48 * 1024

const responseStyle = `RESPONSE STYLE:
- Stay in character with appropriate personality
- Enforce governance and standards strictly
- Provide actionable, domain-specific advice
- Flag violations clearly with control IDs when applicable
- Answer with a line "VERDICT: APPROVE", "VERDICT: FLAG", or "VERDICT: BLOCK" when asked to gate a change
- Keep responses focused and concise`

const truncationNotice = "\n[governance content truncated to fit model context]\n"

// Payload is a composed model request: system instructions plus the
// user's question/content.
type Payload struct {
	System string
	User   string
}

// Options configures composition.
type Options struct {
	// MaxSystemBytes caps the system instruction size. Zero means
	// DefaultMaxSystemBytes.
	MaxSystemBytes int
}

// Compose builds the payload for one persona consultation. Section order
// is stable: persona identity, then organization policies (alphabetical by
// name), then standards (alphabetical by id), then response style. When
// the system budget is exceeded, standards content is dropped first
// (lowest priority), then policy content; persona identity and the user
// input are preserved verbatim.
func Compose(p *persona.Persona, rules *policy.EffectiveRuleSet, input, context string, opts Options) (*Payload, error) {
	if p == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("input is required")
	}

	budget := opts.MaxSystemBytes
	if budget <= 0 {
		budget = DefaultMaxSystemBytes
	}

	identity := renderIdentity(p)

	var policyBlocks, standardBlocks []string
	if rules != nil {
		policyBlocks = renderPolicies(rules.Policies)
		standardBlocks = renderStandards(rules.Standards)
	}

	system := assemble(identity, policyBlocks, standardBlocks, false)
	if len(system) > budget {
		// Drop standards sections from the end first, then policies.
		truncated := false
		for len(system) > budget && len(standardBlocks) > 0 {
			standardBlocks = standardBlocks[:len(standardBlocks)-1]
			truncated = true
			system = assemble(identity, policyBlocks, standardBlocks, truncated)
		}
		for len(system) > budget && len(policyBlocks) > 0 {
			policyBlocks = policyBlocks[:len(policyBlocks)-1]
			truncated = true
			system = assemble(identity, policyBlocks, standardBlocks, truncated)
		}
	}

	user := input
	if context != "" {
		user = "Context: " + context + "\n\n" + input
	}

	return &Payload{System: system, User: user}, nil
}

func renderIdentity(p *persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, providing %s guidance.\n", p.Character, p.Domain)
	if p.Traits != "" {
		b.WriteString("\nCHARACTER TRAITS:\n")
		b.WriteString(strings.TrimRight(p.Traits, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// renderPolicies serializes each policy as its own block so truncation
// can drop whole policies from the end of the ordered list.
func renderPolicies(policies []policy.GovernancePolicy) []string {
	blocks := make([]string, 0, len(policies))
	for _, pol := range policies {
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n", pol.Name)
		// yaml.v3 marshals maps with sorted keys, keeping output stable.
		data, err := yaml.Marshal(pol.Sections)
		if err == nil {
			b.Write(data)
		}
		blocks = append(blocks, b.String())
	}
	return blocks
}

func renderStandards(standards []policy.Standard) []string {
	blocks := make([]string, 0, len(standards))
	for _, std := range standards {
		var b strings.Builder
		fmt.Fprintf(&b, "# %s (v%s)\n", std.Name, std.Version)
		for _, domain := range std.Domains {
			fmt.Fprintf(&b, "\n## %s\n", domain.Name)
			for _, ctrl := range domain.Controls {
				fmt.Fprintf(&b, "- [%s] (%s) %s\n", ctrl.ID, ctrl.Severity, ctrl.Requirement)
			}
		}
		blocks = append(blocks, b.String())
	}
	return blocks
}

func assemble(identity string, policyBlocks, standardBlocks []string, truncated bool) string {
	var b strings.Builder
	b.WriteString(identity)

	if len(policyBlocks) > 0 {
		b.WriteString("\nORGANIZATIONAL GOVERNANCE:\n")
		b.WriteString(strings.Join(policyBlocks, "\n"))
	}
	if len(standardBlocks) > 0 {
		b.WriteString("\nREGULATORY STANDARDS (MUST ENFORCE):\n")
		b.WriteString(strings.Join(standardBlocks, "\n"))
	}
	if truncated {
		b.WriteString(truncationNotice)
	}

	b.WriteString("\n")
	b.WriteString(responseStyle)
	return b.String()
}
