package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/pkg/geocodec"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
	"github.com/samirrijal/parcelview/internal/pkg/telemetry"
)

const defaultImportBatch = 500

// ImportService loads property documents into storage.
type ImportService struct {
	props     ports.PropertyRepository
	events    ports.EventPublisher
	batchSize int
}

// NewImportService creates a new ImportService. events may be nil.
func NewImportService(props ports.PropertyRepository, events ports.EventPublisher) *ImportService {
	return &ImportService{props: props, events: events, batchSize: defaultImportBatch}
}

// ImportDocument decodes a GeoJSON FeatureCollection and imports it.
func (s *ImportService) ImportDocument(ctx context.Context, data []byte, source string) (int, error) {
	props, err := geocodec.DecodeProperties(data)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", source, err)
	}
	return s.Import(ctx, props, source)
}

// Import upserts props in batches and, once all are stored, publishes one
// update event listing their ids.
func (s *ImportService) Import(ctx context.Context, props []domain.Property, source string) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanImport)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrSource, source))

	for i := range props {
		if err := props[i].ImageBounds.Validate(); err != nil && props[i].ImageURL != "" {
			return 0, fmt.Errorf("property %s: %w", props[i].ID, err)
		}
	}

	dropped := countDropped(props)
	if dropped > 0 {
		span.AddEvent("unsupported geometries dropped", trace.WithAttributes(attribute.Int("count", dropped)))
	}

	for start := 0; start < len(props); start += s.batchSize {
		end := min(start+s.batchSize, len(props))
		if err := s.props.UpsertBatch(ctx, props[start:end]); err != nil {
			span.RecordError(err)
			return start, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}
	metrics.PropertiesImported.WithLabelValues(sourceKind(source)).Add(float64(len(props)))

	if s.events != nil && len(props) > 0 {
		ids := make([]string, len(props))
		for i := range props {
			ids[i] = props[i].ID
		}
		event := &domain.PropertyEvent{IDs: ids, Source: source, OccurredAt: time.Now().UTC()}
		if err := s.events.PublishPropertiesUpdated(ctx, event); err != nil {
			return len(props), fmt.Errorf("publish update: %w", err)
		}
	}
	return len(props), nil
}

// countDropped counts parcel and building geometries that storage will keep
// as NULL because they are not polygons.
func countDropped(props []domain.Property) int {
	n := 0
	for i := range props {
		for _, layer := range []struct {
			name string
			g    domain.Geometry
		}{
			{"parcel", props[i].Parcel},
			{"building", props[i].Building},
		} {
			if u, ok := layer.g.(domain.UnsupportedGeometry); ok {
				metrics.GeometriesDropped.WithLabelValues(layer.name, u.Type).Inc()
				n++
			}
		}
	}
	return n
}

func sourceKind(source string) string {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return "url"
	case source == "":
		return "unknown"
	default:
		return "file"
	}
}
