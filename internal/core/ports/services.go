package ports

import (
	"context"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPropertiesUpdated(ctx context.Context, event *domain.PropertyEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePropertiesUpdated(ctx context.Context, handler func(ctx context.Context, event *domain.PropertyEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ImageSource returns the raw bytes of a base image. Missing images wrap
// domain.ErrImageNotFound.
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocumentSource returns the raw bytes of an import document.
type DocumentSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageRenderer composites overlay outlines onto an encoded base image.
type ImageRenderer interface {
	Render(base []byte, bbox domain.BoundingBox, specs []domain.OverlaySpec) (*domain.RasterImage, error)
	Format() domain.ImageFormat
}
