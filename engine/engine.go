// Package engine orchestrates persona consultations: single ask with
// optional routing, parallel team review with verdict reconciliation, and
// sequential fail-fast deployment gates. The engine returns typed results
// and errors only; rendering belongs to the transport adapters.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatekeep-dev/gatekeep/llm"
	"github.com/gatekeep-dev/gatekeep/metric"
	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/policy"
	"github.com/gatekeep-dev/gatekeep/prompt"
)

// Resolver computes a persona's effective rule set.
type Resolver interface {
	Resolve(p *persona.Persona) (*policy.EffectiveRuleSet, error)
}

// Invoker executes one model call.
type Invoker interface {
	Invoke(ctx context.Context, payload *prompt.Payload, modelID string, timeout time.Duration, maxRetries int) (*llm.Response, error)
}

// Engine drives the three invocation modes over a persona registry, a
// policy resolver, and a model invoker.
type Engine struct {
	registry *persona.Registry
	resolver Resolver
	invoker  Invoker
	router   *persona.Router
	logger   *slog.Logger
	metrics  *metric.Set

	timeout        time.Duration
	maxRetries     int
	reviewDeadline time.Duration
	promptOpts     prompt.Options
	gateStages     map[string][]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metric.Set) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTimeout sets the per-invocation model call timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMaxRetries sets the transient-failure retry budget per invocation.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithReviewDeadline sets the default overall deadline for team review.
func WithReviewDeadline(d time.Duration) Option {
	return func(e *Engine) { e.reviewDeadline = d }
}

// WithPromptOptions sets prompt composition options.
func WithPromptOptions(opts prompt.Options) Option {
	return func(e *Engine) { e.promptOpts = opts }
}

// WithGateStages overrides the deployment gate stage lists per
// environment. Environments absent from the map fall back to the
// persona registry's workflow configuration.
func WithGateStages(stages map[string][]string) Option {
	return func(e *Engine) { e.gateStages = stages }
}

// New creates an engine.
func New(registry *persona.Registry, resolver Resolver, invoker Invoker, opts ...Option) *Engine {
	e := &Engine{
		registry:       registry,
		resolver:       resolver,
		invoker:        invoker,
		logger:         slog.Default(),
		timeout:        60 * time.Second,
		maxRetries:     2,
		reviewDeadline: 3 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.router = persona.NewRouter(registry, e.logger)
	return e
}

// Route classifies a free-text question to the best-matching persona
// name. Never fails; unmatched questions go to the default persona.
func (e *Engine) Route(question string) string {
	return e.router.Route(question)
}

// AskRequest is a single persona consultation.
type AskRequest struct {
	// Persona names the persona to consult; empty routes by question.
	Persona string

	Question string

	// Context is optional supplementary content appended to the question.
	Context string
}

// AskResult is the outcome of a single consultation.
type AskResult struct {
	Persona  *persona.Persona
	Routed   bool
	Response *llm.Response
}

// Ask consults one persona. Invocation errors surface directly to the
// caller; config errors (bad governance files, dangling references) are
// fatal and never retried.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	name := req.Persona
	routed := false
	if name == "" {
		name = e.router.Route(req.Question)
		routed = true
	}

	p, ok := e.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", name)
	}

	resp, err := e.consult(ctx, p, req.Question, req.Context)
	if err != nil {
		return nil, err
	}
	return &AskResult{Persona: p, Routed: routed, Response: resp}, nil
}

// consult runs the resolve → compose → invoke pipeline for one persona.
// Consensus personas fan out to every listed model instead.
func (e *Engine) consult(ctx context.Context, p *persona.Persona, question, extra string) (*llm.Response, error) {
	rules, err := e.resolver.Resolve(p)
	if err != nil {
		return nil, err
	}

	payload, err := prompt.Compose(p, rules, question, extra, e.promptOpts)
	if err != nil {
		return nil, err
	}

	if p.Consensus() {
		return e.consensus(ctx, p, payload)
	}
	return e.invoke(ctx, p.Name, payload, p.Model)
}

// invoke wraps the invoker with instrumentation.
func (e *Engine) invoke(ctx context.Context, personaName string, payload *prompt.Payload, modelID string) (*llm.Response, error) {
	started := time.Now()
	resp, err := e.invoker.Invoke(ctx, payload, modelID, e.timeout, e.maxRetries)
	elapsed := time.Since(started).Seconds()

	if err != nil {
		e.metrics.ObserveInvocation(personaName, modelID, "error", elapsed, e.maxRetries, 0, 0)
		return nil, err
	}

	e.metrics.ObserveInvocation(personaName, modelID, "ok", elapsed,
		resp.Attempts-1, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}
