package policy

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/gatekeep-dev/gatekeep/persona"
)

const (
	governanceDir = "governance"
	standardsDir  = "standards"
	manifestFile  = "manifest.yaml"
)

// Resolver computes the effective rule set for a persona from bundled
// defaults plus optional project-level files. It performs no caching
// across calls: every Resolve re-reads the files, trading a small
// repeated-parse cost for freshness if policies change between calls.
type Resolver struct {
	bundled fs.FS
	project fs.FS // nil when no project root was detected
	logger  *slog.Logger
}

// NewResolver creates a resolver over the bundled config filesystem.
// projectRoot may be empty when no project marker was found.
func NewResolver(bundled fs.FS, projectRoot string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{bundled: bundled, logger: logger}
	if projectRoot != "" {
		r.project = os.DirFS(projectRoot)
	}
	return r
}

// Resolve loads and merges all governance policies and standards assigned
// to the persona. A malformed YAML file or a dangling reference yields a
// *ConfigError: governance correctness depends on every referenced rule
// actually loading, so nothing is silently skipped.
func (r *Resolver) Resolve(p *persona.Persona) (*EffectiveRuleSet, error) {
	rs := &EffectiveRuleSet{Persona: p.Name}

	names, err := r.expandPolicyRefs(p.Governance)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		pol, err := r.loadPolicy(name)
		if err != nil {
			return nil, err
		}
		rs.Policies = append(rs.Policies, pol)
	}

	for _, id := range p.Standards {
		std, err := r.loadStandard(id)
		if err != nil {
			return nil, err
		}
		rs.Standards = append(rs.Standards, std)
	}

	rs.sortRules()
	return rs, nil
}

// expandPolicyRefs turns governance references, which may contain glob
// patterns, into a sorted, deduplicated list of concrete file names drawn
// from both the bundled and project governance directories.
func (r *Resolver) expandPolicyRefs(refs []string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, ref := range refs {
		if !strings.ContainsAny(ref, "*?[{") {
			add(ref)
			continue
		}

		matched := false
		for _, fsys := range []fs.FS{r.bundled, r.project} {
			if fsys == nil {
				continue
			}
			matches, err := doublestar.Glob(fsys, path.Join(governanceDir, ref))
			if err != nil {
				return nil, NewConfigError(ref, fmt.Errorf("bad governance pattern: %w", err))
			}
			for _, m := range matches {
				add(path.Base(m))
				matched = true
			}
		}
		if !matched {
			return nil, NewMissingRefError(ref)
		}
	}

	sort.Strings(names)
	return names, nil
}

// loadPolicy loads one governance policy, merging a project-level file of
// the same name over the bundled one key-by-key.
func (r *Resolver) loadPolicy(name string) (GovernancePolicy, error) {
	relPath := path.Join(governanceDir, name)

	base, baseFound, err := readSections(r.bundled, relPath)
	if err != nil {
		return GovernancePolicy{}, err
	}

	var override map[string]any
	overrideFound := false
	if r.project != nil {
		override, overrideFound, err = readSections(r.project, relPath)
		if err != nil {
			return GovernancePolicy{}, err
		}
	}

	if !baseFound && !overrideFound {
		return GovernancePolicy{}, NewMissingRefError(name)
	}

	return GovernancePolicy{
		Name:     name,
		Sections: mergeSections(base, override),
	}, nil
}

// loadStandard loads a standard by id. A project-level standard directory
// with the same id takes precedence over the bundled one; standards are
// versioned bundles, so they override as a unit rather than key-by-key.
func (r *Resolver) loadStandard(id string) (Standard, error) {
	dir := path.Join(standardsDir, id)

	fsys := r.bundled
	if r.project != nil {
		if _, err := fs.Stat(r.project, path.Join(dir, manifestFile)); err == nil {
			fsys = r.project
		}
	}

	data, err := fs.ReadFile(fsys, path.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Standard{}, NewMissingRefError(id)
		}
		return Standard{}, NewConfigError(path.Join(dir, manifestFile), err)
	}

	var manifest standardManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Standard{}, NewConfigError(path.Join(dir, manifestFile), err)
	}

	std := Standard{
		ID:      manifest.Standard.ID,
		Name:    manifest.Standard.Name,
		Version: manifest.Standard.Version,
	}
	if std.ID == "" {
		std.ID = id
	}

	files, err := r.expandControlFiles(fsys, dir, manifest.Standard.Files)
	if err != nil {
		return Standard{}, err
	}

	for _, file := range files {
		domain, err := readDomain(fsys, path.Join(dir, file))
		if err != nil {
			return Standard{}, err
		}
		domain.Name = strings.TrimSuffix(file, path.Ext(file))
		std.Domains = append(std.Domains, domain)
	}

	return std, nil
}

// expandControlFiles expands manifest file entries, which may be glob
// patterns, against the standard's directory. An entry matching nothing is
// a ConfigError: a manifest promising controls that are absent is exactly
// the kind of silent gap the resolver must refuse.
func (r *Resolver) expandControlFiles(fsys fs.FS, dir string, entries []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, entry := range entries {
		if !strings.ContainsAny(entry, "*?[{") {
			if _, err := fs.Stat(fsys, path.Join(dir, entry)); err != nil {
				return nil, NewConfigError(path.Join(dir, entry), fmt.Errorf("control file listed in manifest: %w", err))
			}
			if !seen[entry] {
				seen[entry] = true
				files = append(files, entry)
			}
			continue
		}

		matches, err := doublestar.Glob(fsys, path.Join(dir, entry))
		if err != nil {
			return nil, NewConfigError(entry, fmt.Errorf("bad manifest pattern: %w", err))
		}
		if len(matches) == 0 {
			return nil, NewConfigError(path.Join(dir, entry), fmt.Errorf("manifest pattern matched no control files"))
		}
		for _, m := range matches {
			name := path.Base(m)
			if name == manifestFile {
				continue
			}
			if !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// readSections parses a policy file into its section mapping.
func readSections(fsys fs.FS, relPath string) (map[string]any, bool, error) {
	data, err := fs.ReadFile(fsys, relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, NewConfigError(relPath, err)
	}

	var sections map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, false, NewConfigError(relPath, err)
	}
	return sections, true, nil
}

// readDomain parses one control file.
func readDomain(fsys fs.FS, relPath string) (StandardDomain, error) {
	data, err := fs.ReadFile(fsys, relPath)
	if err != nil {
		return StandardDomain{}, NewConfigError(relPath, err)
	}

	var domain struct {
		Controls []Control `yaml:"controls"`
	}
	if err := yaml.Unmarshal(data, &domain); err != nil {
		return StandardDomain{}, NewConfigError(relPath, err)
	}
	return StandardDomain{Controls: domain.Controls}, nil
}
