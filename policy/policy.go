// Package policy loads organization governance policies and external
// regulatory standards and merges them into the effective rule set for a
// persona. Project-level files override bundled defaults by name; sections
// merge key-by-key with the project value winning on conflict.
package policy

import (
	"sort"
)

// GovernancePolicy is a named bundle of rule sections (security,
// cost-control, architecture, ...) expressed as nested key→value mappings.
type GovernancePolicy struct {
	// Name is the policy filename without directory (e.g. "security.yaml").
	Name string

	// Sections holds the parsed rule content.
	Sections map[string]any
}

// Control is one rule entry in a regulatory standard.
type Control struct {
	ID          string `yaml:"id"`
	Requirement string `yaml:"requirement"`
	Severity    string `yaml:"severity"`
}

// StandardDomain groups the controls of one control file.
type StandardDomain struct {
	Name     string
	Controls []Control
}

// Standard is an external regulation bundle (e.g. OWASP Top 10) described
// by a manifest listing its control files.
type Standard struct {
	ID      string
	Name    string
	Version string
	Domains []StandardDomain
}

// standardManifest is the on-disk manifest.yaml shape.
type standardManifest struct {
	Standard struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Version string   `yaml:"version"`
		Files   []string `yaml:"files"`
	} `yaml:"standard"`
}

// EffectiveRuleSet is the computed, override-resolved union of one
// persona's governance policies and assigned standards. It is recomputed
// per invocation and deterministic for a fixed file set: policies sort by
// name, standards by id, domains by name.
type EffectiveRuleSet struct {
	Persona   string
	Policies  []GovernancePolicy
	Standards []Standard
}

// sortRules applies the canonical ordering so two resolutions over the
// same files compare byte-identical after serialization.
func (rs *EffectiveRuleSet) sortRules() {
	sort.Slice(rs.Policies, func(i, j int) bool {
		return rs.Policies[i].Name < rs.Policies[j].Name
	})
	sort.Slice(rs.Standards, func(i, j int) bool {
		return rs.Standards[i].ID < rs.Standards[j].ID
	})
	for i := range rs.Standards {
		domains := rs.Standards[i].Domains
		sort.Slice(domains, func(a, b int) bool {
			return domains[a].Name < domains[b].Name
		})
	}
}
