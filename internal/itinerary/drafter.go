package itinerary

import (
	"context"
	"fmt"
	"time"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/logger"
	"kcourse/internal/synthesis"
)

// Shape requires the top-level keys every itinerary must carry.
var Shape = synthesis.MustShape("itinerary", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
		"dateRange": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start": map[string]any{"type": "string"},
				"end":   map[string]any{"type": "string"},
			},
		},
		"days": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object"},
		},
	},
	"required": []any{"summary", "dateRange", "days"},
})

// Drafter asks one model for a structured itinerary.
type Drafter struct {
	Model provider.ModelProvider
}

func NewDrafter(model provider.ModelProvider) (*Drafter, error) {
	if model == nil {
		return nil, fmt.Errorf("itinerary drafter needs a model")
	}
	return &Drafter{Model: model}, nil
}

// Draft returns the model's itinerary object as decoded JSON.
func (d *Drafter) Draft(ctx context.Context, req Request) (map[string]any, error) {
	prompt := BuildPrompt(req)
	id := d.Model.ID()
	logger.LogLLMRequest(id, "itinerary", prompt.System, prompt.User, nil)
	start := time.Now()
	raw, err := d.Model.Call(ctx, provider.ChatPayload{
		System:     prompt.System,
		User:       prompt.User,
		ExpectJSON: true,
	})
	if err != nil {
		logger.Warnf("model %s itinerary failed elapsed=%s err=%v", id, time.Since(start).Truncate(time.Millisecond), err)
		return nil, err
	}
	logger.LogLLMResponse(id, "itinerary", raw)
	plan, err := synthesis.ParseStructured[map[string]any](raw, Shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return plan, nil
}
