// Package assets embeds the bundled governance policies, persona
// definitions, and regulatory standards that ship with the binary, and
// scaffolds them into a project for gatekeep init.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed personas governance standards
var bundled embed.FS

// Bundled returns the embedded config tree (personas/, governance/,
// standards/).
func Bundled() fs.FS {
	return bundled
}

// StandardVersion tracks one standard's installed vs latest version.
type StandardVersion struct {
	Installed string `yaml:"installed"`
	Latest    string `yaml:"latest"`
	Status    string `yaml:"status"`
}

// LoadVersions returns the standards version tracking table. A
// project-level standards/versions.yaml takes precedence over the
// bundled one.
func LoadVersions(projectRoot string) (map[string]StandardVersion, error) {
	var data []byte
	var err error

	if projectRoot != "" {
		data, err = os.ReadFile(filepath.Join(projectRoot, "standards", "versions.yaml"))
	}
	if projectRoot == "" || err != nil {
		data, err = bundled.ReadFile("standards/versions.yaml")
		if err != nil {
			return nil, fmt.Errorf("read versions file: %w", err)
		}
	}

	var doc struct {
		Standards map[string]StandardVersion `yaml:"standards"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse versions file: %w", err)
	}
	return doc.Standards, nil
}

// defaultProjectConfig is written by Scaffold as the project marker.
const defaultProjectConfig = `project:
  name: "my-project"
  standards:
    - owasp-top10
  budget_limit: 30
`

// defaultEnvExample documents the required API key.
const defaultEnvExample = "OPENROUTER_API_KEY=your_openrouter_api_key_here\n"

// ScaffoldResult reports what Scaffold created and what it left alone.
type ScaffoldResult struct {
	Created []string
	Skipped []string
}

// Scaffold copies the bundled governance/, personas/, and standards/
// trees plus gatekeep.yaml and .env.example into dst. It is idempotent:
// anything that already exists is skipped, never overwritten.
func Scaffold(dst string) (*ScaffoldResult, error) {
	result := &ScaffoldResult{}

	for _, dir := range []string{"governance", "personas", "standards"} {
		target := filepath.Join(dst, dir)
		if _, err := os.Stat(target); err == nil {
			result.Skipped = append(result.Skipped, dir+"/")
			continue
		}
		if err := copyTree(bundled, dir, target); err != nil {
			return nil, fmt.Errorf("scaffold %s: %w", dir, err)
		}
		result.Created = append(result.Created, dir+"/")
	}

	files := []struct {
		name    string
		content string
	}{
		{"gatekeep.yaml", defaultProjectConfig},
		{".env.example", defaultEnvExample},
	}
	for _, f := range files {
		target := filepath.Join(dst, f.name)
		if _, err := os.Stat(target); err == nil {
			result.Skipped = append(result.Skipped, f.name)
			continue
		}
		if err := os.WriteFile(target, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("scaffold %s: %w", f.name, err)
		}
		result.Created = append(result.Created, f.name)
	}

	return result, nil
}

// copyTree copies an embedded subtree to disk.
func copyTree(src fs.FS, root, dst string) error {
	return fs.WalkDir(src, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := fs.ReadFile(src, path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}
