package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// --- Mock PropertyRepository ---

type mockPropertyRepo struct {
	upsertBatchFn   func(ctx context.Context, props []domain.Property) error
	getByIDFn       func(ctx context.Context, id string) (*domain.Property, error)
	getByIDsFn      func(ctx context.Context, ids []string) ([]domain.Property, error)
	listFn          func(ctx context.Context, offset, limit int) ([]domain.Property, error)
	countFn         func(ctx context.Context) (int, error)
	listLocationsFn func(ctx context.Context) ([]domain.LocationRecord, error)
	findNearbyFn    func(ctx context.Context, q domain.DistanceQuery) ([]string, error)
}

func (m *mockPropertyRepo) UpsertBatch(ctx context.Context, props []domain.Property) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, props)
	}
	return nil
}

func (m *mockPropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrPropertyNotFound
}

func (m *mockPropertyRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockPropertyRepo) List(ctx context.Context, offset, limit int) ([]domain.Property, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockPropertyRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockPropertyRepo) ListLocations(ctx context.Context) ([]domain.LocationRecord, error) {
	if m.listLocationsFn != nil {
		return m.listLocationsFn(ctx)
	}
	return nil, nil
}

func (m *mockPropertyRepo) FindNearby(ctx context.Context, q domain.DistanceQuery) ([]string, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, q)
	}
	return nil, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock ImageSource ---

type mockImageSource struct {
	fetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockImageSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return []byte("image"), nil
}

// --- Mock ImageRenderer ---

type mockRenderer struct {
	renderFn func(base []byte, bbox domain.BoundingBox, specs []domain.OverlaySpec) (*domain.RasterImage, error)
}

func (m *mockRenderer) Render(base []byte, bbox domain.BoundingBox, specs []domain.OverlaySpec) (*domain.RasterImage, error) {
	if m.renderFn != nil {
		return m.renderFn(base, bbox, specs)
	}
	return &domain.RasterImage{Data: base, Format: domain.FormatJPEG, Drawn: len(specs)}, nil
}

func (m *mockRenderer) Format() domain.ImageFormat { return domain.FormatJPEG }

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []*domain.PropertyEvent
	err    error
}

func (m *mockPublisher) PublishPropertiesUpdated(ctx context.Context, event *domain.PropertyEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
