package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatekeep-dev/gatekeep/engine"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   engine.Verdict
		found  bool
	}{
		{"plain marker", "Looks fine.\n\nVERDICT: APPROVE", engine.VerdictApprove, true},
		{"lowercase marker", "verdict: block", engine.VerdictBlock, true},
		{"flag marker", "Some concerns.\nVERDICT: FLAG", engine.VerdictFlag, true},
		{"markdown bold", "**Verdict:** **BLOCK**", engine.VerdictBlock, true},
		{"markdown emphasis", "_Verdict_: approve", engine.VerdictApprove, true},
		{"bare approved", "This change is APPROVED for release.", engine.VerdictApprove, true},
		{"bare blocked", "This is BLOCKED until the secrets are rotated.", engine.VerdictBlock, true},
		{"do not deploy", "Do not deploy this. Ever.", engine.VerdictBlock, true},
		{"not approved is no approval", "This is NOT APPROVED.", "", false},
		{"no marker", "Here are three suggestions for the schema.", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := engine.ParseVerdict(tt.output)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func results(verdicts ...engine.Verdict) []engine.ReviewResult {
	out := make([]engine.ReviewResult, len(verdicts))
	for i, v := range verdicts {
		out[i] = engine.ReviewResult{Persona: "p", Verdict: v}
	}
	return out
}

func TestCombineVerdicts(t *testing.T) {
	tests := []struct {
		name string
		in   []engine.ReviewResult
		want engine.CombinedVerdict
	}{
		{"all approve", results(engine.VerdictApprove, engine.VerdictApprove, engine.VerdictApprove), engine.CombinedApprove},
		{"one block wins", results(engine.VerdictApprove, engine.VerdictBlock, engine.VerdictApprove), engine.CombinedBlock},
		{"block beats unavailable", results(engine.VerdictUnavailable, engine.VerdictBlock), engine.CombinedBlock},
		{"unavailable beats flag", results(engine.VerdictFlag, engine.VerdictUnavailable, engine.VerdictApprove), engine.CombinedInconclusive},
		{"flag beats approve", results(engine.VerdictApprove, engine.VerdictFlag), engine.CombinedFlag},
		{"empty approves", nil, engine.CombinedApprove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.CombineVerdicts(tt.in))
		})
	}
}
