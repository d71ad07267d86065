package persona

import (
	"log/slog"
	"sort"
	"strings"
)

// Router classifies a free-text question to the best-matching persona.
// Routing is advisory, not a gate: it never fails, degrading to the
// default persona when no keyword scores above the threshold.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, logger: logger}
}

// Route returns the name of the persona whose keyword list best matches
// the question. Ties break by declared priority (higher first), then by
// name for a stable result.
func (r *Router) Route(question string) string {
	q := strings.ToLower(question)
	rules := r.registry.Routing()

	type score struct {
		persona *Persona
		hits    int
	}

	var scores []score
	for _, p := range r.registry.List() {
		hits := 0
		for _, kw := range p.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(q, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > 0 {
			scores = append(scores, score{persona: p, hits: hits})
		}
	}

	if len(scores) == 0 {
		return rules.Default
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].hits != scores[j].hits {
			return scores[i].hits > scores[j].hits
		}
		if scores[i].persona.Priority != scores[j].persona.Priority {
			return scores[i].persona.Priority > scores[j].persona.Priority
		}
		return scores[i].persona.Name < scores[j].persona.Name
	})

	best := scores[0]
	if best.hits < rules.Threshold {
		return rules.Default
	}

	r.logger.Debug("Routed question",
		"persona", best.persona.Name,
		"score", best.hits,
		"candidates", len(scores))

	return best.persona.Name
}
