package engine

import (
	"context"
	"fmt"
	"strings"
)

// StageState is a deployment gate stage's lifecycle state.
type StageState string

// Stage states. Stages left pending were skipped by fail-fast.
const (
	StagePending StageState = "pending"
	StageRunning StageState = "running"
	StagePassed  StageState = "passed"
	StageFailed  StageState = "failed"
)

// GateOutcome is the overall deployment gate result.
type GateOutcome string

// Gate outcomes.
const (
	GatePassed GateOutcome = "passed"
	GateFailed GateOutcome = "failed"
)

// Stage is one named step of a deployment gate, wrapping a single
// persona invocation.
type Stage struct {
	Name    string
	Persona string
	State   StageState
	Result  *ReviewResult
}

// GateResult is the outcome of a deployment gate run.
type GateResult struct {
	Environment string
	Stages      []*Stage
	Outcome     GateOutcome
}

// DeployRequest is a deployment gate check.
type DeployRequest struct {
	Plan        string
	Environment string

	// Context is optional supplementary content.
	Context string
}

// Deploy runs the deployment gate for an environment. Stages execute
// strictly sequentially in configuration order, each feeding its
// assessment into the next stage's context. The gate fails fast: a
// failed stage skips everything after it, since a later approval is
// meaningless once an earlier gate rejects.
func (e *Engine) Deploy(ctx context.Context, req DeployRequest) (*GateResult, error) {
	if req.Plan == "" {
		return nil, fmt.Errorf("deployment plan is required")
	}

	stagePersonas, ok := e.gateStages[req.Environment]
	if !ok {
		stagePersonas, ok = e.registry.Workflows().DeploymentGate[req.Environment]
	}
	if !ok || len(stagePersonas) == 0 {
		return nil, fmt.Errorf("no deployment gate configured for environment %q", req.Environment)
	}

	result := &GateResult{Environment: req.Environment}
	for _, name := range stagePersonas {
		p, found := e.registry.Get(name)
		if !found {
			return nil, fmt.Errorf("deployment gate references unknown persona %q", name)
		}
		result.Stages = append(result.Stages, &Stage{
			Name:    p.Character,
			Persona: name,
			State:   StagePending,
		})
	}

	// Prior stage assessments accumulate so the final approver sees the
	// earlier checks.
	var prior []string
	if req.Context != "" {
		prior = append(prior, req.Context)
	}

	result.Outcome = GatePassed
	for _, stage := range result.Stages {
		stage.State = StageRunning

		p, _ := e.registry.Get(stage.Persona)
		question := fmt.Sprintf("Approve deployment to %s? Give your verdict.\n\nPlan: %s", req.Environment, req.Plan)

		resp, err := e.consult(ctx, p, question, strings.Join(prior, "\n\n"))
		if err != nil {
			stage.State = StageFailed
			stage.Result = &ReviewResult{
				Persona: stage.Persona,
				Verdict: VerdictUnavailable,
				Err:     err.Error(),
			}
			result.Outcome = GateFailed
			e.logger.Warn("Gate stage failed",
				"environment", req.Environment,
				"stage", stage.Name,
				"error", err)
			break
		}

		verdict := deriveVerdict(p.GateRole, resp.Content)
		stage.Result = &ReviewResult{
			Persona: stage.Persona,
			Output:  resp.Content,
			Verdict: verdict,
			Usage:   resp.Usage,
		}

		if verdict == VerdictBlock {
			stage.State = StageFailed
			result.Outcome = GateFailed
			e.logger.Info("Gate stage blocked deployment",
				"environment", req.Environment,
				"stage", stage.Name)
			break
		}

		stage.State = StagePassed
		prior = append(prior, fmt.Sprintf("%s assessment:\n%s", stage.Name, resp.Content))
	}

	return result, nil
}
