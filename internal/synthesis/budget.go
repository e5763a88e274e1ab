package synthesis

import (
	"context"
	"fmt"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// BudgetEstimator asks a fixed panel of models for a cost range and combines
// the answers into the widest envelope.
type BudgetEstimator struct {
	Panel        []provider.ModelProvider
	Prompts      PromptSource
	MaxPlausible decimal.Decimal
}

func NewBudgetEstimator(panel []provider.ModelProvider, prompts PromptSource, maxPlausible float64) (*BudgetEstimator, error) {
	if len(panel) == 0 {
		return nil, fmt.Errorf("budget estimator needs at least one model")
	}
	return &BudgetEstimator{Panel: panel, Prompts: prompts, MaxPlausible: decimal.NewFromFloat(maxPlausible)}, nil
}

// EstimateBudget queries every member concurrently. All members must answer
// with a parseable estimate; the first failure cancels the rest and fails
// the whole estimate.
func (e *BudgetEstimator) EstimateBudget(ctx context.Context, planText string) (BudgetRange, error) {
	prompts := DefaultPrompts()
	if e.Prompts != nil {
		prompts = e.Prompts.Prompts()
	}
	payload := provider.ChatPayload{
		System:     prompts.Set().BudgetSystem,
		User:       planText,
		ExpectJSON: true,
	}
	estimates := make([]BudgetEstimate, len(e.Panel))
	g, gctx := errgroup.WithContext(ctx)
	for i, member := range e.Panel {
		i, member := i, member
		g.Go(func() error {
			raw, err := invoke(gctx, member, StageBudget, payload)
			if err != nil {
				return err
			}
			est, err := ParseBudget(raw, e.MaxPlausible)
			if err != nil {
				return fmt.Errorf("%s: %w", member.ID(), err)
			}
			est.Provider = member.ID()
			estimates[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BudgetRange{}, err
	}
	rng := Envelope(estimates)
	logger.Infof("budget envelope min=%s max=%s members=%d", rng.Min, rng.Max, len(estimates))
	return rng, nil
}

// Envelope returns (min of mins, max of maxes). It is not an average.
func Envelope(estimates []BudgetEstimate) BudgetRange {
	if len(estimates) == 0 {
		return BudgetRange{}
	}
	out := BudgetRange{Min: estimates[0].Min, Max: estimates[0].Max}
	for _, est := range estimates[1:] {
		if est.Min.LessThan(out.Min) {
			out.Min = est.Min
		}
		if est.Max.GreaterThan(out.Max) {
			out.Max = est.Max
		}
	}
	return out
}
