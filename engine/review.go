package engine

import (
	"context"
	"fmt"
	"time"
)

// defaultReviewTrio is used when the personas file defines no team
// review workflow.
var defaultReviewTrio = []string{"auditor", "sentinel", "architect"}

// ReviewRequest is a parallel team review of some content.
type ReviewRequest struct {
	Content string

	// Context is optional supplementary content.
	Context string

	// Deadline bounds the whole review; zero uses the engine default.
	// Personas still pending when it elapses report as unavailable.
	Deadline time.Duration
}

// Review invokes the review trio concurrently, each persona with its own
// independently resolved rule set and composed prompt, and reconciles
// the verdicts. A single slow or failed persona never blocks the others:
// its slot degrades to an unavailable verdict.
func (e *Engine) Review(ctx context.Context, req ReviewRequest) (*TeamVerdict, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("review content is required")
	}

	names := e.registry.Workflows().TeamReview.Personas
	if len(names) == 0 {
		names = defaultReviewTrio
	}

	deadline := req.Deadline
	if deadline <= 0 {
		deadline = e.reviewDeadline
	}
	reviewCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Fan out one goroutine per persona; the channel is buffered so
	// stragglers finishing after the deadline don't leak.
	type indexed struct {
		i   int
		res ReviewResult
	}
	ch := make(chan indexed, len(names))

	for i, name := range names {
		go func(i int, name string) {
			ch <- indexed{i: i, res: e.reviewOne(reviewCtx, name, req)}
		}(i, name)
	}

	results := make([]ReviewResult, len(names))
	collected := make([]bool, len(names))
	pending := len(names)

	for pending > 0 {
		select {
		case r := <-ch:
			results[r.i] = r.res
			collected[r.i] = true
			pending--

		case <-reviewCtx.Done():
			for i := range results {
				if !collected[i] {
					results[i] = ReviewResult{
						Persona: names[i],
						Verdict: VerdictUnavailable,
						Err:     "review deadline exceeded",
					}
				}
			}
			pending = 0
		}
	}

	verdict := &TeamVerdict{
		Results:  results,
		Combined: CombineVerdicts(results),
	}

	e.logger.Debug("Team review complete",
		"personas", len(names),
		"verdict", verdict.Combined)
	return verdict, nil
}

// reviewOne consults a single review persona and derives its verdict.
// All failures degrade to an unavailable result; the other reviewers'
// verdicts stay usable.
func (e *Engine) reviewOne(ctx context.Context, name string, req ReviewRequest) ReviewResult {
	p, ok := e.registry.Get(name)
	if !ok {
		return ReviewResult{
			Persona: name,
			Verdict: VerdictUnavailable,
			Err:     fmt.Sprintf("unknown persona %q", name),
		}
	}

	question := fmt.Sprintf("Review the following for %s concerns and give your verdict:\n\n%s", p.Domain, req.Content)

	resp, err := e.consult(ctx, p, question, req.Context)
	if err != nil {
		e.logger.Warn("Review persona failed",
			"persona", name,
			"error", err)
		return ReviewResult{
			Persona: name,
			Verdict: VerdictUnavailable,
			Err:     err.Error(),
		}
	}

	return ReviewResult{
		Persona: name,
		Output:  resp.Content,
		Verdict: deriveVerdict(p.GateRole, resp.Content),
		Usage:   resp.Usage,
	}
}

// deriveVerdict interprets a persona's output. Gate-role personas with
// no parseable decision flag conservatively; advisory personas default
// to approve.
func deriveVerdict(gateRole bool, output string) Verdict {
	if v, ok := ParseVerdict(output); ok {
		return v
	}
	if gateRole {
		return VerdictFlag
	}
	return VerdictApprove
}
