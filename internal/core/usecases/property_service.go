package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
	"github.com/samirrijal/parcelview/internal/pkg/telemetry"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PropertyService handles property lookups and proximity search.
type PropertyService struct {
	props     ports.PropertyRepository
	cache     ports.CacheService
	index     *SearchIndex
	maxRadius float64
}

// NewPropertyService creates a new PropertyService. With a nil index,
// proximity search runs in the repository. maxRadius <= 0 means unbounded.
func NewPropertyService(props ports.PropertyRepository, cache ports.CacheService, index *SearchIndex, maxRadius float64) *PropertyService {
	return &PropertyService{props: props, cache: cache, index: index, maxRadius: maxRadius}
}

// FindNear returns the ids of properties within q.RadiusMeters of q.Point,
// nearest first.
func (s *PropertyService) FindNear(ctx context.Context, q domain.DistanceQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.maxRadius > 0 && q.RadiusMeters > s.maxRadius {
		return nil, fmt.Errorf("%w: radius %g exceeds maximum %g", domain.ErrInvalidQuery, q.RadiusMeters, s.maxRadius)
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFindNear)
	defer span.End()
	span.SetAttributes(attribute.Float64(telemetry.AttrRadius, q.RadiusMeters))

	var idx geospatial.Index
	if s.index != nil {
		idx = s.index.Index()
	}

	if idx != nil {
		ids, err := idx.FindWithin(q)
		if err != nil {
			return nil, err
		}
		s.observe(span, "memory", ids)
		return ids, nil
	}

	cacheKey := fmt.Sprintf("properties:near:%.6f:%.6f:%.2f", q.Point.Lat, q.Point.Lon, q.RadiusMeters)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var ids []string
			if err := json.Unmarshal(data, &ids); err == nil {
				metrics.CacheHits.WithLabelValues("find_near").Inc()
				s.observe(span, "cache", ids)
				return ids, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("find_near").Inc()
	}

	ids, err := s.props.FindNearby(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}

	// Cache for 1 minute; updates also land through the index refresh
	if s.cache != nil {
		if data, err := json.Marshal(ids); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	s.observe(span, "postgis", ids)
	return ids, nil
}

func (s *PropertyService) observe(span trace.Span, backend string, ids []string) {
	metrics.SearchResults.WithLabelValues(backend).Observe(float64(len(ids)))
	span.SetAttributes(
		attribute.String(telemetry.AttrBackend, backend),
		attribute.Int(telemetry.AttrResults, len(ids)),
	)
}

// List returns a page of properties ordered by id, plus the total count.
func (s *PropertyService) List(ctx context.Context, offset, limit int) ([]domain.Property, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	props, err := s.props.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.props.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return props, total, nil
}

// ListAll returns every stored property ordered by id, reading the
// repository one full page at a time.
func (s *PropertyService) ListAll(ctx context.Context) ([]domain.Property, error) {
	all := []domain.Property{}
	for offset := 0; ; offset += maxPageSize {
		page, err := s.props.List(ctx, offset, maxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < maxPageSize {
			return all, nil
		}
	}
}

// GetByID returns a single property.
func (s *PropertyService) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrPropertyNotFound)
	}
	return s.props.GetByID(ctx, id)
}

// GetByIDs returns multiple properties by their IDs.
func (s *PropertyService) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.props.GetByIDs(ctx, ids)
}
