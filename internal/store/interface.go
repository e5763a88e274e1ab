package store

import (
	"context"
	"errors"

	"kcourse/internal/types"
)

// ErrNotFound is returned when no trip plan has the requested ID.
var ErrNotFound = errors.New("trip plan not found")

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	UserID string
	Limit  int
}

func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return DefaultListLimit
	}
	return f.Limit
}

// PlanRepository persists trip plans.
type PlanRepository interface {
	// Insert assigns ID and CreatedAt when they are empty and stores plan.
	Insert(ctx context.Context, plan *types.TripPlan) error
	// List returns plans newest first.
	List(ctx context.Context, filter ListFilter) ([]types.TripPlan, error)
	Get(ctx context.Context, id string) (*types.TripPlan, error)
	// Delete removes the plan and returns what was removed.
	Delete(ctx context.Context, id string) (*types.TripPlan, error)
	Close() error
}
