package usecases

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
	"github.com/samirrijal/parcelview/internal/pkg/telemetry"
)

// SearchIndex holds the in-memory spatial index over stored property
// locations. Readers never block; Refresh swaps in a rebuilt index.
type SearchIndex struct {
	props ports.PropertyRepository

	mu      sync.Mutex // one rebuild at a time
	current atomic.Pointer[indexSnapshot]
}

type indexSnapshot struct {
	idx     geospatial.Index
	builtAt time.Time
}

// NewSearchIndex creates an empty SearchIndex. Call Refresh to load it.
func NewSearchIndex(props ports.PropertyRepository) *SearchIndex {
	return &SearchIndex{props: props}
}

// Refresh rebuilds the index from the repository and returns its size.
// On failure the previous index stays in place.
func (s *SearchIndex) Refresh(ctx context.Context) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanIndexRefresh)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.props.ListLocations(ctx)
	if err != nil {
		metrics.IndexRefreshes.WithLabelValues("error").Inc()
		span.RecordError(err)
		return 0, err
	}

	idx := geospatial.NewRTreeIndex(records)
	s.current.Store(&indexSnapshot{idx: idx, builtAt: time.Now()})

	metrics.IndexRefreshes.WithLabelValues("ok").Inc()
	metrics.IndexSize.Set(float64(idx.Len()))
	span.SetAttributes(attribute.Int(telemetry.AttrResults, idx.Len()))
	return idx.Len(), nil
}

// Index returns the current index, or nil before the first successful Refresh.
func (s *SearchIndex) Index() geospatial.Index {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	return snap.idx
}

// BuiltAt reports when the current index was built.
func (s *SearchIndex) BuiltAt() (time.Time, bool) {
	snap := s.current.Load()
	if snap == nil {
		return time.Time{}, false
	}
	return snap.builtAt, true
}
