package assets_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/assets"
)

func TestBundled_ContainsConfigTrees(t *testing.T) {
	fsys := assets.Bundled()

	for _, path := range []string{
		"personas/personas.yaml",
		"governance/security.yaml",
		"governance/cost-control.yaml",
		"governance/architecture.yaml",
		"standards/owasp-top10/manifest.yaml",
		"standards/versions.yaml",
	} {
		_, err := fsys.Open(path)
		assert.NoError(t, err, path)
	}
}

func TestLoadVersions_Bundled(t *testing.T) {
	versions, err := assets.LoadVersions("")
	require.NoError(t, err)

	owasp, ok := versions["owasp-top10"]
	require.True(t, ok)
	assert.Equal(t, "current", owasp.Status)
	assert.NotEmpty(t, owasp.Installed)
}

func TestLoadVersions_ProjectOverride(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "standards"), 0755))
	content := "standards:\n  gdpr:\n    installed: \"2024\"\n    latest: \"2024\"\n    status: current\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "standards", "versions.yaml"), []byte(content), 0644))

	versions, err := assets.LoadVersions(root)
	require.NoError(t, err)
	assert.Contains(t, versions, "gdpr")
	assert.NotContains(t, versions, "owasp-top10")
}

func TestScaffold(t *testing.T) {
	dst := t.TempDir()

	result, err := assets.Scaffold(dst)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Contains(t, result.Created, "governance/")
	assert.Contains(t, result.Created, "personas/")
	assert.Contains(t, result.Created, "standards/")
	assert.Contains(t, result.Created, "gatekeep.yaml")
	assert.Contains(t, result.Created, ".env.example")

	for _, path := range []string{
		"personas/personas.yaml",
		"governance/security.yaml",
		"standards/owasp-top10/manifest.yaml",
		"gatekeep.yaml",
	} {
		_, err := os.Stat(filepath.Join(dst, path))
		assert.NoError(t, err, path)
	}
}

func TestScaffold_Idempotent(t *testing.T) {
	dst := t.TempDir()

	_, err := assets.Scaffold(dst)
	require.NoError(t, err)

	// Local edits must survive a re-run.
	custom := []byte("project:\n  name: \"edited\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dst, "gatekeep.yaml"), custom, 0644))

	result, err := assets.Scaffold(dst)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Contains(t, result.Skipped, "gatekeep.yaml")

	data, err := os.ReadFile(filepath.Join(dst, "gatekeep.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}
