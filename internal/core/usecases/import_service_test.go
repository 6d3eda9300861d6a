package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/usecases"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
)

func manyProperties(n int) []domain.Property {
	props := make([]domain.Property, n)
	for i := range props {
		props[i] = domain.Property{
			ID:          fmt.Sprintf("p%d", i),
			Location:    bilbao,
			ImageBounds: domain.BoundingBox{MinLon: -3, MinLat: 43, MaxLon: -2.9, MaxLat: 43.3},
			ImageURL:    "file:///images/p.jpg",
		}
	}
	return props
}

func TestImportService_BatchesAndPublishes(t *testing.T) {
	var batches []int
	repo := &mockPropertyRepo{
		upsertBatchFn: func(ctx context.Context, props []domain.Property) error {
			batches = append(batches, len(props))
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewImportService(repo, pub)

	n, err := svc.Import(context.Background(), manyProperties(1200), "seed.geojson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1200 {
		t.Errorf("expected 1200 imported, got %d", n)
	}
	if len(batches) != 3 || batches[0] != 500 || batches[2] != 200 {
		t.Errorf("unexpected batches %v", batches)
	}
	if len(pub.events) != 1 || len(pub.events[0].IDs) != 1200 || pub.events[0].Source != "seed.geojson" {
		t.Fatalf("expected one event with all ids, got %+v", pub.events)
	}
}

func TestImportService_UpsertErrorStopsBeforePublish(t *testing.T) {
	calls := 0
	repo := &mockPropertyRepo{
		upsertBatchFn: func(ctx context.Context, props []domain.Property) error {
			calls++
			if calls == 2 {
				return errors.New("constraint violation")
			}
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewImportService(repo, pub)

	n, err := svc.Import(context.Background(), manyProperties(1200), "seed.geojson")
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 500 {
		t.Errorf("expected 500 stored before failure, got %d", n)
	}
	if len(pub.events) != 0 {
		t.Error("no event should be published after a failed import")
	}
}

func TestImportService_RejectsInvalidBounds(t *testing.T) {
	props := manyProperties(1)
	props[0].ImageBounds = domain.BoundingBox{MinLon: 1, MinLat: 1, MaxLon: 1, MaxLat: 2}

	svc := usecases.NewImportService(&mockPropertyRepo{}, nil)
	if _, err := svc.Import(context.Background(), props, "x"); !errors.Is(err, domain.ErrInvalidBoundingBox) {
		t.Errorf("expected ErrInvalidBoundingBox, got %v", err)
	}
}

func TestImportService_ImportDocument(t *testing.T) {
	var stored []domain.Property
	repo := &mockPropertyRepo{
		upsertBatchFn: func(ctx context.Context, props []domain.Property) error {
			stored = append(stored, props...)
			return nil
		},
	}
	svc := usecases.NewImportService(repo, nil)

	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[-2.93,43.26]},
		 "properties":{"image_bounds":[-2.94,43.25,-2.92,43.27],"image_url":"https://x/a.jpg"}}
	]}`
	n, err := svc.ImportDocument(context.Background(), []byte(doc), "https://x/props.geojson")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(stored) != 1 || stored[0].ID != "a" {
		t.Errorf("unexpected import result n=%d stored=%+v", n, stored)
	}

	if _, err := svc.ImportDocument(context.Background(), []byte("nope"), "bad"); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestImportService_CountsDroppedGeometries(t *testing.T) {
	building := metrics.GeometriesDropped.WithLabelValues("building", "LineString")
	parcel := metrics.GeometriesDropped.WithLabelValues("parcel", "Point")
	beforeBuilding, beforeParcel := testutil.ToFloat64(building), testutil.ToFloat64(parcel)

	props := manyProperties(3)
	props[0].Building = domain.UnsupportedGeometry{Type: "LineString"}
	props[1].Parcel = domain.UnsupportedGeometry{Type: "Point"}
	props[1].Building = domain.Polygon{Outer: domain.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}}}
	props[2].Building = domain.UnsupportedGeometry{Type: "LineString"}

	var stored []domain.Property
	repo := &mockPropertyRepo{
		upsertBatchFn: func(ctx context.Context, batch []domain.Property) error {
			stored = append(stored, batch...)
			return nil
		},
	}
	n, err := usecases.NewImportService(repo, nil).Import(context.Background(), props, "mixed.geojson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || len(stored) != 3 {
		t.Fatalf("expected all 3 properties stored, got n=%d stored=%d", n, len(stored))
	}
	if got := testutil.ToFloat64(building) - beforeBuilding; got != 2 {
		t.Errorf("expected 2 dropped buildings, got %v", got)
	}
	if got := testutil.ToFloat64(parcel) - beforeParcel; got != 1 {
		t.Errorf("expected 1 dropped parcel, got %v", got)
	}
}
