package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kcourse/internal/store"
	"kcourse/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "data", "plans.db"), "tour_plan")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePlan(user string) *types.TripPlan {
	return &types.TripPlan{
		UserID:       user,
		Destination:  "전주",
		Purpose:      "한옥마을 산책",
		PeopleCount:  3,
		StartDate:    types.NewDate(2025, time.April, 5),
		EndDate:      types.NewDate(2025, time.April, 6),
		ImageURL:     "https://cdn.test/tour-images/1_a.jpg",
		AISuggestion: "한옥마을, 전동성당, 비빔밥",
		AIMinBudget:  decimal.NewFromInt(90000),
		AIMaxBudget:  decimal.RequireFromString("250000.5"),
	}
}

func TestGormStore_InsertGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plan := samplePlan("u1")
	require.NoError(t, s.Insert(ctx, plan))
	require.NotEmpty(t, plan.ID)
	require.False(t, plan.CreatedAt.IsZero())

	got, err := s.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "전주", got.Destination)
	assert.Equal(t, "2025-04-05", got.StartDate.String())
	assert.Equal(t, "2025-04-06", got.EndDate.String())
	assert.True(t, got.AIMaxBudget.Equal(decimal.RequireFromString("250000.5")))
	assert.True(t, got.AIMinBudget.Equal(decimal.NewFromInt(90000)))

	deleted, err := s.Delete(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ImageURL, deleted.ImageURL)

	_, err = s.Get(ctx, plan.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Delete(ctx, plan.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGormStore_ListNewestFirstWithUserFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, user := range []string{"u1", "u2", "u1"} {
		p := samplePlan(user)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		p.Destination = []string{"a", "b", "c"}[i]
		require.NoError(t, s.Insert(ctx, p))
	}

	all, err := s.List(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].Destination, all[1].Destination, all[2].Destination})

	mine, err := s.List(ctx, store.ListFilter{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c", mine[0].Destination)
}

func TestNewGormStore_RequiresPath(t *testing.T) {
	_, err := NewGormStore(" ", "tour_plan")
	assert.Error(t, err)
}
