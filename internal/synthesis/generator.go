package synthesis

import (
	"context"
	"fmt"
	"strings"

	"kcourse/internal/gateway/provider"
)

// refinedPromptResponseSchema is the subset of RefinedPromptShape that
// schema-constrained providers accept.
var refinedPromptResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompt": map[string]any{"type": "string"},
	},
	"required": []any{"prompt"},
}

// PlanGenerator chains two models: the refiner writes a generation prompt,
// the writer follows it to produce the plan prose.
type PlanGenerator struct {
	Refiner provider.ModelProvider
	Writer  provider.ModelProvider
	Prompts PromptSource
}

func NewPlanGenerator(refiner, writer provider.ModelProvider, prompts PromptSource) (*PlanGenerator, error) {
	if refiner == nil || writer == nil {
		return nil, fmt.Errorf("plan generator needs refine and plan models")
	}
	return &PlanGenerator{Refiner: refiner, Writer: writer, Prompts: prompts}, nil
}

// GenerateRefinedPrompt is stage one.
func (g *PlanGenerator) GenerateRefinedPrompt(ctx context.Context, req *TripRequest) (RefinedPrompt, error) {
	compiled := g.prompts().CompileGenerationPrompt(req)
	raw, err := invoke(ctx, g.Refiner, StageRefine, provider.ChatPayload{
		System:     compiled.System,
		User:       compiled.User,
		ExpectJSON: true,
		Schema:     refinedPromptResponseSchema,
	})
	if err != nil {
		return RefinedPrompt{}, err
	}
	refined, err := ParseStructured[RefinedPrompt](raw, RefinedPromptShape)
	if err != nil {
		return RefinedPrompt{}, fmt.Errorf("%s: %w", g.Refiner.ID(), err)
	}
	refined.Prompt = strings.TrimSpace(refined.Prompt)
	return refined, nil
}

// GeneratePlanText is stage two. The length cap lives in the instructions
// only; the answer is not truncated.
func (g *PlanGenerator) GeneratePlanText(ctx context.Context, refined RefinedPrompt) (string, error) {
	set := g.prompts().Set()
	raw, err := invoke(ctx, g.Writer, StagePlan, provider.ChatPayload{
		System:    set.PlanSystem,
		User:      refined.Prompt,
		MaxTokens: set.PlanMaxTokens,
	})
	if err != nil {
		return "", err
	}
	plan := strings.TrimSpace(raw)
	if plan == "" {
		return "", &MalformedModelOutputError{Source: g.Writer.ID(), Reason: "empty plan text"}
	}
	return plan, nil
}

// Generate runs both stages.
func (g *PlanGenerator) Generate(ctx context.Context, req *TripRequest) (string, error) {
	refined, err := g.GenerateRefinedPrompt(ctx, req)
	if err != nil {
		return "", err
	}
	return g.GeneratePlanText(ctx, refined)
}

func (g *PlanGenerator) prompts() *Prompts {
	if g.Prompts == nil {
		return DefaultPrompts()
	}
	return g.Prompts.Prompts()
}
