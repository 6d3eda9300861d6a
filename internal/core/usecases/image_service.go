package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
	"github.com/samirrijal/parcelview/internal/pkg/telemetry"
)

// ImageService renders a property's aerial image with optional outlines.
type ImageService struct {
	props    ports.PropertyRepository
	images   ports.ImageSource
	renderer ports.ImageRenderer
}

// NewImageService creates a new ImageService.
func NewImageService(props ports.PropertyRepository, images ports.ImageSource, renderer ports.ImageRenderer) *ImageService {
	return &ImageService{props: props, images: images, renderer: renderer}
}

// Layer names an overlay source on a property.
type Layer string

const (
	LayerParcel   Layer = "parcel"
	LayerBuilding Layer = "building"
)

// LayeredSpec is an overlay spec tagged with the layer it came from.
type LayeredSpec struct {
	Layer Layer
	domain.OverlaySpec
}

// OverlaySpecs picks the outlines to draw for p: nothing unless opts.Overlay
// is set, then the parcel followed by the building, each only when its colour
// was requested and the property has that geometry.
func OverlaySpecs(p *domain.Property, opts domain.ImageOptions) []LayeredSpec {
	if !opts.Overlay {
		return nil
	}
	var specs []LayeredSpec
	if opts.ParcelColor != nil && p.Parcel != nil {
		specs = append(specs, LayeredSpec{Layer: LayerParcel, OverlaySpec: domain.OverlaySpec{Geometry: p.Parcel, Color: *opts.ParcelColor}})
	}
	if opts.BuildingColor != nil && p.Building != nil {
		specs = append(specs, LayeredSpec{Layer: LayerBuilding, OverlaySpec: domain.OverlaySpec{Geometry: p.Building, Color: *opts.BuildingColor}})
	}
	return specs
}

// Render fetches the property's base image and draws the requested overlays.
func (s *ImageService) Render(ctx context.Context, id string, opts domain.ImageOptions) (*domain.RasterImage, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRender)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrPropertyID, id))

	prop, err := s.props.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prop.ImageURL == "" {
		return nil, fmt.Errorf("%w: property %s has no image", domain.ErrImageNotFound, id)
	}

	base, err := s.images.Fetch(ctx, prop.ImageURL)
	if err != nil {
		metrics.RendersTotal.WithLabelValues("fetch_error").Inc()
		span.RecordError(err)
		return nil, err
	}

	layered := OverlaySpecs(prop, opts)
	specs := make([]domain.OverlaySpec, len(layered))
	for i, l := range layered {
		specs[i] = l.OverlaySpec
		if _, err := domain.OuterRing(l.Geometry); errors.Is(err, domain.ErrUnsupportedGeometry) {
			metrics.OverlaysSkipped.WithLabelValues(string(l.Layer)).Inc()
		}
	}
	span.SetAttributes(attribute.Int(telemetry.AttrOverlays, len(specs)))

	start := time.Now()
	img, err := s.renderer.Render(base, prop.ImageBounds, specs)
	metrics.RenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RendersTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("render property %s: %w", id, err)
	}

	metrics.RendersTotal.WithLabelValues("ok").Inc()
	return img, nil
}
