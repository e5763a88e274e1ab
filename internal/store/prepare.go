package store

import (
	"time"

	"kcourse/internal/types"

	"github.com/google/uuid"
)

// PrepareInsert fills the ID and CreatedAt of a new plan.
func PrepareInsert(plan *types.TripPlan, now time.Time) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now.UTC()
	}
}
