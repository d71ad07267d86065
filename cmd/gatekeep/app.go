package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatekeep-dev/gatekeep/assets"
	"github.com/gatekeep-dev/gatekeep/config"
	"github.com/gatekeep-dev/gatekeep/engine"
	"github.com/gatekeep-dev/gatekeep/llm"
	"github.com/gatekeep-dev/gatekeep/metric"
	"github.com/gatekeep-dev/gatekeep/model"
	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/policy"
)

// app wires the configuration, registries, and engine for one command
// invocation.
type app struct {
	cfg      *config.Config
	root     string
	registry *persona.Registry
	engine   *engine.Engine
	metrics  *metric.Set
	logger   *slog.Logger
}

// newApp builds the full consultation stack: layered config, persona
// registry, policy resolver, model registry, and the engine on top.
func newApp() (*app, error) {
	logger := slog.Default()

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, err
	}
	root := config.FindProjectRoot()

	registry, err := persona.LoadRegistry(assets.Bundled(), root, logger)
	if err != nil {
		return nil, err
	}

	endpoints := model.NewDefaultRegistry()
	for name, ep := range cfg.Endpoints {
		endpoints.SetEndpoint(name, ep)
	}

	client := llm.NewClient(endpoints,
		llm.WithLogger(logger),
		llm.WithTemperature(cfg.Model.Temperature))

	resolver := policy.NewResolver(assets.Bundled(), root, logger)
	metrics := metric.NewSet()

	eng := engine.New(registry, resolver, client,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.WithTimeout(cfg.Model.Timeout),
		engine.WithMaxRetries(cfg.Model.MaxRetries),
		engine.WithReviewDeadline(cfg.Review.Deadline),
		engine.WithGateStages(cfg.Deploy.Stages))

	a := &app{
		cfg:      cfg,
		root:     root,
		registry: registry,
		engine:   eng,
		metrics:  metrics,
		logger:   logger,
	}
	a.serveMetrics()
	return a, nil
}

// requireAPIKey resolves the model API key before any consultation.
func (a *app) requireAPIKey() error {
	if _, err := config.LoadAPIKey(); err != nil {
		return fmt.Errorf("no API key configured: %w", err)
	}
	return nil
}

// printUsage prints the token/cost footer after a consultation.
func printUsage(resp *llm.Response) {
	if resp == nil || resp.Usage.TotalTokens == 0 {
		return
	}
	fmt.Printf("\n[%s | %d tokens", resp.Model, resp.Usage.TotalTokens)
	if resp.Usage.Cost > 0 {
		fmt.Printf(" | $%.4f", resp.Usage.Cost)
	}
	fmt.Println("]")
}

// serveMetrics starts the optional prometheus listener. The process is
// short-lived, so the listener is best-effort and never blocks exit.
func (a *app) serveMetrics() {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Warn("Metrics listener failed", "addr", addr, "error", err)
		}
	}()
}
