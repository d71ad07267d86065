// Package persona defines the role-specialized AI personas that front the
// governance engine, the registry that loads them from bundled and
// project-level definitions, and the keyword router that matches free-text
// questions to the best persona.
package persona

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Persona is a named role configuration pairing governance and standards
// scope with a target model. Immutable once loaded.
type Persona struct {
	// Name is the registry key (lowercase, e.g. "sentinel").
	Name string `yaml:"-"`

	// Character is the display identity (e.g. "Sentinel").
	Character string `yaml:"character"`

	// Role is a short role description shown in listings.
	Role string `yaml:"role"`

	// Domain tags the persona's area of expertise.
	Domain string `yaml:"domain"`

	Emoji string `yaml:"emoji"`

	// Traits is free-text character description included in prompts.
	Traits string `yaml:"traits"`

	// Model is the assigned model identifier.
	Model string `yaml:"model"`

	// Models, when set, makes this a consensus persona: one composed
	// prompt fans out to every listed model and the responses are
	// reconciled into a single answer.
	Models []string `yaml:"models"`

	// Governance lists governance policy file references. Entries may be
	// glob patterns.
	Governance []string `yaml:"governance"`

	// Standards lists regulatory standard ids.
	Standards []string `yaml:"standards"`

	// Keywords drive routing: case-insensitive substring matches against
	// the question text score one point each.
	Keywords []string `yaml:"keywords"`

	// Priority breaks routing ties; higher wins.
	Priority int `yaml:"priority"`

	// GateRole marks personas whose responses imply a gate decision and
	// must be parsed for a verdict.
	GateRole bool `yaml:"gate_role"`
}

// Consensus reports whether this persona fans out to multiple models.
func (p *Persona) Consensus() bool {
	return len(p.Models) > 0
}

// RoutingRules configures the router.
type RoutingRules struct {
	// Default is the fallback persona when no keyword scores above
	// Threshold.
	Default string `yaml:"default"`

	// Threshold is the minimum score for a confident match.
	Threshold int `yaml:"threshold"`
}

// Workflows holds composite invocation definitions.
type Workflows struct {
	// TeamReview lists the personas consulted concurrently by review mode.
	TeamReview struct {
		Personas []string `yaml:"personas"`
	} `yaml:"team_review"`

	// DeploymentGate maps environment name to the ordered stage personas.
	DeploymentGate map[string][]string `yaml:"deployment_gate"`
}

// personasFile is the on-disk personas.yaml shape.
type personasFile struct {
	Personas  map[string]*Persona `yaml:"personas"`
	Routing   RoutingRules        `yaml:"routing"`
	Workflows Workflows           `yaml:"workflows"`
}

// Registry holds the loaded persona set. Created at process start;
// read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	personas  map[string]*Persona
	routing   RoutingRules
	workflows Workflows
}

// personasPath is the personas file location under a config root.
const personasPath = "personas/personas.yaml"

// LoadRegistry builds a registry from the bundled definitions, then
// applies project-level definitions if projectRoot is non-empty.
// Project entries override bundled entries with the same name wholesale.
func LoadRegistry(bundled fs.FS, projectRoot string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := readPersonasFS(bundled, personasPath)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("bundled personas definition missing")
	}

	reg := &Registry{
		personas:  make(map[string]*Persona),
		routing:   base.Routing,
		workflows: base.Workflows,
	}
	for name, p := range base.Personas {
		p.Name = name
		reg.personas[name] = p
	}

	if projectRoot != "" {
		project, err := readPersonasFS(os.DirFS(projectRoot), personasPath)
		if err != nil {
			return nil, err
		}
		if project != nil {
			for name, p := range project.Personas {
				p.Name = name
				reg.personas[name] = p
			}
			if project.Routing.Default != "" {
				reg.routing.Default = project.Routing.Default
			}
			if project.Routing.Threshold != 0 {
				reg.routing.Threshold = project.Routing.Threshold
			}
			if len(project.Workflows.TeamReview.Personas) > 0 {
				reg.workflows.TeamReview = project.Workflows.TeamReview
			}
			if len(project.Workflows.DeploymentGate) > 0 {
				reg.workflows.DeploymentGate = project.Workflows.DeploymentGate
			}
			logger.Debug("Applied project persona overrides",
				"path", filepath.Join(projectRoot, personasPath),
				"personas", len(project.Personas))
		}
	}

	if reg.routing.Default == "" {
		reg.routing.Default = "guide"
	}
	if reg.routing.Threshold <= 0 {
		reg.routing.Threshold = 1
	}

	return reg, nil
}

// readPersonasFS parses a personas file, returning nil if it is absent.
func readPersonasFS(fsys fs.FS, path string) (*personasFile, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read personas file %s: %w", path, err)
	}

	var pf personasFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse personas file %s: %w", path, err)
	}
	return &pf, nil
}

// Get returns the persona with the given name.
func (r *Registry) Get(name string) (*Persona, bool) {
	p, ok := r.personas[name]
	return p, ok
}

// List returns all personas sorted by name.
func (r *Registry) List() []*Persona {
	list := make([]*Persona, 0, len(r.personas))
	for _, p := range r.personas {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Routing returns the routing rules.
func (r *Registry) Routing() RoutingRules {
	return r.routing
}

// Workflows returns the composite workflow definitions.
func (r *Registry) Workflows() Workflows {
	return r.workflows
}
