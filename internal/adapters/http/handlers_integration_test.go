//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/parcelview/internal/adapters/http"
	"github.com/samirrijal/parcelview/internal/adapters/imagefetch"
	"github.com/samirrijal/parcelview/internal/adapters/postgres"
	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/usecases"
	"github.com/samirrijal/parcelview/internal/pkg/config"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
	"github.com/samirrijal/parcelview/internal/pkg/overlay"
)

// setupTestDB connects to the test database (migrations already applied).
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("parcelview-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupTestDeps creates dependencies with the real repository, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB, index *usecases.SearchIndex) *http.Dependencies {
	repo := postgres.NewPropertyRepo(db)
	return &http.Dependencies{
		Properties: usecases.NewPropertyService(repo, nil, index, 50000),
		Images:     usecases.NewImageService(repo, imagefetch.New(5*time.Second, 8<<20), overlay.New(overlay.Options{})),
		Index:      index,
		DB:         db,
	}
}

// seedProperties stores a line of properties heading north from the origin,
// roughly 111 m apart.
func seedProperties(t *testing.T, db *postgres.DB, prefix string) []domain.Property {
	props := make([]domain.Property, 4)
	for i := range props {
		lat := 10 + float64(i)*0.001
		props[i] = domain.Property{
			ID:          prefix + string(rune('a'+i)),
			Location:    domain.GeoPoint{Lon: 20, Lat: lat},
			ImageBounds: domain.BoundingBox{MinLon: 19.999, MinLat: lat - 0.001, MaxLon: 20.001, MaxLat: lat + 0.001},
			Parcel: domain.Polygon{Outer: domain.Ring{
				{Lon: 19.9995, Lat: lat - 0.0005}, {Lon: 20.0005, Lat: lat - 0.0005},
				{Lon: 20.0005, Lat: lat + 0.0005}, {Lon: 19.9995, Lat: lat - 0.0005},
			}},
		}
	}
	ctx := context.Background()
	if err := postgres.NewPropertyRepo(db).UpsertBatch(ctx, props); err != nil {
		t.Fatalf("seed properties: %v", err)
	}
	return props
}

func TestGetProperty_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	prefix := "integ-get-" + time.Now().Format("150405") + "-"
	props := seedProperties(t, db, prefix)

	app := setupApp(setupTestDeps(t, db, nil))
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/properties/"+props[0].ID, nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		ID          string          `json:"id"`
		Latitude    float64         `json:"latitude"`
		ParcelGeo   json.RawMessage `json:"parcel_geo"`
		ImageBounds []float64       `json:"image_bounds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != props[0].ID || got.Latitude != props[0].Location.Lat {
		t.Errorf("unexpected property %+v", got)
	}
	if len(got.ImageBounds) != 4 || string(got.ParcelGeo) == "null" {
		t.Errorf("expected bounds and parcel to round trip, got %+v", got)
	}
}

// TestFind_Integration runs the same query against PostGIS and the in-memory
// index and expects the same ordered ids.
func TestFind_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	prefix := "integ-find-" + time.Now().Format("150405") + "-"
	props := seedProperties(t, db, prefix)

	index := usecases.NewSearchIndex(postgres.NewPropertyRepo(db))
	if _, err := index.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh index: %v", err)
	}

	body := findBody(20.0, 10.0, 250)
	var results [2][]string
	for i, deps := range []*http.Dependencies{setupTestDeps(t, db, nil), setupTestDeps(t, db, index)} {
		resp, err := setupApp(deps).Test(postJSON("/v1/find", body), -1)
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&results[i]); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}

	var postgis, memory []string
	for _, id := range results[0] {
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			postgis = append(postgis, id)
		}
	}
	for _, id := range results[1] {
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			memory = append(memory, id)
		}
	}

	// 0, ~111 m and ~222 m are inside 250 m; ~333 m is not
	want := []string{props[0].ID, props[1].ID, props[2].ID}
	for name, got := range map[string][]string{"postgis": postgis, "memory": memory} {
		if len(got) != len(want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: expected %v, got %v", name, want, got)
				break
			}
		}
	}
}

func TestFindNearby_BoundaryMatchesIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	repo := postgres.NewPropertyRepo(db)
	ctx := context.Background()

	// due north at 10N the spheroid is ~0.5% shorter than the sphere, so a
	// spheroidal query would admit the point inside the 1 m margin below
	origin := domain.GeoPoint{Lon: -30, Lat: 10}
	far := geospatial.Destination(origin, 0, 10_000)
	id := "integ-boundary-" + time.Now().Format("150405")
	p := domain.Property{
		ID:          id,
		Location:    far,
		ImageBounds: domain.BoundingBox{MinLon: far.Lon - 0.001, MinLat: far.Lat - 0.001, MaxLon: far.Lon + 0.001, MaxLat: far.Lat + 0.001},
	}
	if err := repo.UpsertBatch(ctx, []domain.Property{p}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d := geospatial.Distance(origin, far)
	records := []domain.LocationRecord{{ID: id, Point: far}}
	for _, tc := range []struct {
		radius float64
		want   bool
	}{
		{d - 1, false},
		{d + 1, true},
	} {
		q := domain.DistanceQuery{Point: origin, RadiusMeters: tc.radius}
		fromDB, err := repo.FindNearby(ctx, q)
		if err != nil {
			t.Fatalf("find nearby: %v", err)
		}
		fromIndex, err := geospatial.FindWithin(q, records)
		if err != nil {
			t.Fatal(err)
		}
		if got := contains(fromDB, id); got != tc.want {
			t.Errorf("radius %.1f: postgis included=%v, want %v", tc.radius, got, tc.want)
		}
		if got := contains(fromIndex, id); got != tc.want {
			t.Errorf("radius %.1f: index included=%v, want %v", tc.radius, got, tc.want)
		}
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
