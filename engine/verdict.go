package engine

import (
	"regexp"
	"strings"

	"github.com/gatekeep-dev/gatekeep/llm"
)

// Verdict is one persona's gate decision derived from its response.
type Verdict string

// Per-persona verdict values.
const (
	VerdictApprove     Verdict = "approve"
	VerdictFlag        Verdict = "flag"
	VerdictBlock       Verdict = "block"
	VerdictUnavailable Verdict = "unavailable"
)

// CombinedVerdict is the reconciled outcome of a multi-persona review.
type CombinedVerdict string

// Combined verdict values.
const (
	CombinedApprove      CombinedVerdict = "approve"
	CombinedFlag         CombinedVerdict = "flag"
	CombinedBlock        CombinedVerdict = "block"
	CombinedInconclusive CombinedVerdict = "inconclusive"
)

// ReviewResult holds one persona's contribution to a review or gate
// stage: the raw model text plus the derived verdict. A failed
// invocation contributes verdict unavailable with Err set.
type ReviewResult struct {
	Persona string
	Output  string
	Verdict Verdict
	Err     string
	Usage   llm.TokenUsage
}

// TeamVerdict aggregates a parallel team review.
type TeamVerdict struct {
	Results  []ReviewResult
	Combined CombinedVerdict
}

// verdictPattern matches an explicit decision marker in model output,
// tolerating markdown emphasis around it.
var verdictPattern = regexp.MustCompile(`(?i)\bverdict\b[:\s*_]*\**[\s]*(approve|flag|block)`)

// ParseVerdict extracts a gate decision from model output. The second
// return is false when no decision marker was found.
func ParseVerdict(output string) (Verdict, bool) {
	if m := verdictPattern.FindStringSubmatch(output); m != nil {
		switch strings.ToLower(m[1]) {
		case "approve":
			return VerdictApprove, true
		case "flag":
			return VerdictFlag, true
		case "block":
			return VerdictBlock, true
		}
	}

	// Bare forms some models produce despite the prompt.
	upper := strings.ToUpper(output)
	switch {
	case strings.Contains(upper, "APPROVED") && !strings.Contains(upper, "NOT APPROVED"):
		return VerdictApprove, true
	case strings.Contains(upper, "BLOCKED") || strings.Contains(upper, "DO NOT DEPLOY"):
		return VerdictBlock, true
	}

	return "", false
}

// CombineVerdicts implements the team verdict law: any block makes the
// combination block; otherwise any unavailable makes it inconclusive;
// otherwise any flag makes it flag; otherwise approve.
func CombineVerdicts(results []ReviewResult) CombinedVerdict {
	hasUnavailable := false
	hasFlag := false

	for _, r := range results {
		switch r.Verdict {
		case VerdictBlock:
			return CombinedBlock
		case VerdictUnavailable:
			hasUnavailable = true
		case VerdictFlag:
			hasFlag = true
		}
	}

	if hasUnavailable {
		return CombinedInconclusive
	}
	if hasFlag {
		return CombinedFlag
	}
	return CombinedApprove
}
