package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parcelview/internal/core/usecases"
)

// Pinger is a backing service the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Properties *usecases.PropertyService
	Images     *usecases.ImageService
	Index      *usecases.SearchIndex // nil when search runs in PostGIS
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger
}
