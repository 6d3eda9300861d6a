package ports

import (
	"context"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// PropertyRepository persists properties and answers spatial queries in storage.
type PropertyRepository interface {
	UpsertBatch(ctx context.Context, props []domain.Property) error
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error)
	List(ctx context.Context, offset, limit int) ([]domain.Property, error)
	Count(ctx context.Context) (int, error)
	// ListLocations returns every stored point, ordered by id.
	ListLocations(ctx context.Context) ([]domain.LocationRecord, error)
	// FindNearby returns ids within q.RadiusMeters, nearest first.
	FindNearby(ctx context.Context, q domain.DistanceQuery) ([]string, error)
}
