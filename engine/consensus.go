package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gatekeep-dev/gatekeep/llm"
	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/prompt"
)

// consensus fans the same payload out to every model the persona lists
// and stitches the answers into one response, each section labelled with
// the model that produced it. A model failure becomes an inline note
// rather than sinking the whole consultation; only when every model
// fails does the call error.
func (e *Engine) consensus(ctx context.Context, p *persona.Persona, payload *prompt.Payload) (*llm.Response, error) {
	type outcome struct {
		model string
		resp  *llm.Response
		err   error
	}

	outcomes := make([]outcome, len(p.Models))
	var wg sync.WaitGroup
	for i, modelID := range p.Models {
		wg.Add(1)
		go func(i int, modelID string) {
			defer wg.Done()
			resp, err := e.invoke(ctx, p.Name, payload, modelID)
			outcomes[i] = outcome{model: modelID, resp: resp, err: err}
		}(i, modelID)
	}
	wg.Wait()

	var sections []string
	combined := &llm.Response{Model: "consensus"}
	failures := 0

	for _, o := range outcomes {
		if o.err != nil {
			failures++
			sections = append(sections, fmt.Sprintf("**%s**:\n(unavailable: %v)", o.model, o.err))
			continue
		}
		sections = append(sections, fmt.Sprintf("**%s**:\n%s", o.model, o.resp.Content))
		combined.Usage.PromptTokens += o.resp.Usage.PromptTokens
		combined.Usage.CompletionTokens += o.resp.Usage.CompletionTokens
		combined.Usage.TotalTokens += o.resp.Usage.TotalTokens
		combined.Usage.Cost += o.resp.Usage.Cost
		combined.Attempts += o.resp.Attempts
		if combined.RequestID == "" {
			combined.RequestID = o.resp.RequestID
		}
	}

	if failures == len(outcomes) {
		return nil, fmt.Errorf("all %d consensus models failed for persona %q", len(outcomes), p.Name)
	}

	combined.Content = strings.Join(sections, "\n\n---\n\n")
	combined.FinishReason = "stop"
	return combined, nil
}
