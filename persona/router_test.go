package persona_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/assets"
	"github.com/gatekeep-dev/gatekeep/persona"
)

func TestRouter_BundledPersonas(t *testing.T) {
	reg, err := persona.LoadRegistry(assets.Bundled(), "", nil)
	require.NoError(t, err)
	router := persona.NewRouter(reg, nil)

	tests := []struct {
		question string
		want     string
	}{
		{"Is this auth flow secure against injection?", "sentinel"},
		{"How much will this lambda cost per month?", "auditor"},
		{"Can we deploy this to staging for a qa pass?", "tester"},
		{"Ready to deploy to production, any concerns?", "guardian"},
		{"Please review this pull request for readability", "reviewer"},
		{"What database schema fits an event driven design?", "architect"},
		{"Where do the logs and metrics dashboards live?", "observer"},
		// No keyword match: default persona.
		{"What's for lunch?", "guide"},
		{"", "guide"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, router.Route(tt.question))
		})
	}
}

func TestRouter_TieBreaksByPriorityThenName(t *testing.T) {
	reg, err := persona.LoadRegistry(assets.Bundled(), "", nil)
	require.NoError(t, err)
	router := persona.NewRouter(reg, nil)

	// "deploy" alone hits both tester (priority 20) and guardian
	// (priority 60); the higher priority wins.
	assert.Equal(t, "guardian", router.Route("deploy it"))
}

func TestRouter_CaseInsensitive(t *testing.T) {
	reg, err := persona.LoadRegistry(assets.Bundled(), "", nil)
	require.NoError(t, err)
	router := persona.NewRouter(reg, nil)

	assert.Equal(t, "sentinel", router.Route("SECURITY QUESTION ABOUT IAM"))
}

func TestRouter_ThresholdFallsBackToDefault(t *testing.T) {
	fsys := minimalFS()
	reg, err := persona.LoadRegistry(fsys, "", nil)
	require.NoError(t, err)
	router := persona.NewRouter(reg, nil)

	assert.Equal(t, "sentinel", router.Route("a security question"))
	assert.Equal(t, "guide", router.Route("nothing relevant here"))
}
