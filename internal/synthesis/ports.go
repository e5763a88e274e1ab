package synthesis

import (
	"context"

	"kcourse/internal/types"
)

// ObjectStore holds uploaded and generated images.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

// RecordStore persists finished trip plans. Insert assigns ID and CreatedAt.
type RecordStore interface {
	Insert(ctx context.Context, plan *types.TripPlan) error
}
