package synthesis

import (
	"context"
	"testing"
	"time"

	"kcourse/internal/gateway/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func budgetPanel(replies ...string) []provider.ModelProvider {
	panel := make([]provider.ModelProvider, len(replies))
	for i, r := range replies {
		panel[i] = &fakeModel{id: "member-" + string(rune('a'+i)), reply: r}
	}
	return panel
}

func TestEnvelope(t *testing.T) {
	est := func(min, max int64) BudgetEstimate {
		return BudgetEstimate{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)}
	}
	got := Envelope([]BudgetEstimate{est(100000, 200000), est(150000, 180000), est(90000, 250000)})
	assert.True(t, got.Min.Equal(decimal.NewFromInt(90000)))
	assert.True(t, got.Max.Equal(decimal.NewFromInt(250000)))

	single := Envelope([]BudgetEstimate{est(5, 7)})
	assert.True(t, single.Min.Equal(decimal.NewFromInt(5)))
	assert.True(t, single.Max.Equal(decimal.NewFromInt(7)))
}

func TestEstimateBudget_WidestEnvelope(t *testing.T) {
	panel := budgetPanel(
		`{"min_budget":"100000","max_budget":"200000"}`,
		`{"min_budget":150000,"max_budget":180000}`,
		`{"min_budget":"90,000원","max_budget":"250,000원"}`,
	)
	est, err := NewBudgetEstimator(panel, nil, 100_000_000)
	require.NoError(t, err)

	rng, err := est.EstimateBudget(context.Background(), "경복궁 관람 후 북촌 산책")
	require.NoError(t, err)
	assert.Equal(t, "90000", rng.Min.String())
	assert.Equal(t, "250000", rng.Max.String())

	for _, m := range panel {
		fm := m.(*fakeModel)
		assert.Equal(t, int32(1), fm.calls.Load())
		p := fm.lastPayload()
		assert.Equal(t, "경복궁 관람 후 북촌 산책", p.User)
		assert.True(t, p.ExpectJSON)
		assert.Contains(t, p.System, "min_budget")
	}
}

func TestEstimateBudget_AllOrNothing(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		panel := budgetPanel(`{"min_budget":1,"max_budget":2}`, `{"min_budget":1,"max_budget":2}`)
		panel = append(panel, &fakeModel{id: "broken", err: &provider.ProviderError{Provider: "broken", Status: 500}})
		est, _ := NewBudgetEstimator(panel, nil, 0)

		_, err := est.EstimateBudget(context.Background(), "plan")
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "broken", pe.Provider)
	})
	t.Run("unparseable member", func(t *testing.T) {
		panel := budgetPanel(`{"min_budget":1,"max_budget":2}`, `{"min_budget": 100000}`, `{"min_budget":1,"max_budget":2}`)
		est, _ := NewBudgetEstimator(panel, nil, 0)

		rng, err := est.EstimateBudget(context.Background(), "plan")
		var malformed *MalformedModelOutputError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, err.Error(), "member-b")
		assert.True(t, rng.Min.IsZero())
		assert.True(t, rng.Max.IsZero())
	})
}

func TestEstimateBudget_RunsMembersConcurrently(t *testing.T) {
	const delay = 150 * time.Millisecond
	panel := make([]provider.ModelProvider, 3)
	for i := range panel {
		panel[i] = &fakeModel{id: "slow", delay: delay, reply: `{"min_budget":1,"max_budget":2}`}
	}
	est, _ := NewBudgetEstimator(panel, nil, 0)

	start := time.Now()
	_, err := est.EstimateBudget(context.Background(), "plan")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*delay)
}

func TestEstimateBudget_FailureCancelsSlowMembers(t *testing.T) {
	slow := &fakeModel{id: "slow", delay: 5 * time.Second, reply: `{"min_budget":1,"max_budget":2}`}
	panel := []provider.ModelProvider{slow, &fakeModel{id: "fast-fail", err: errUpstream}}
	est, _ := NewBudgetEstimator(panel, nil, 0)

	start := time.Now()
	_, err := est.EstimateBudget(context.Background(), "plan")
	require.ErrorIs(t, err, errUpstream)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewBudgetEstimator_RequiresPanel(t *testing.T) {
	_, err := NewBudgetEstimator(nil, nil, 0)
	assert.Error(t, err)
}
