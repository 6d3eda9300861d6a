package geospatial_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
)

var testBox = domain.BoundingBox{MinLon: -100.01, MinLat: 40.00, MaxLon: -99.99, MaxLat: 40.02}

func TestProject_Corners(t *testing.T) {
	cases := []struct {
		p    domain.GeoPoint
		x, y float64
	}{
		{domain.GeoPoint{Lon: -100.01, Lat: 40.00}, 0, 600},
		{domain.GeoPoint{Lon: -99.99, Lat: 40.00}, 800, 600},
		{domain.GeoPoint{Lon: -99.99, Lat: 40.02}, 800, 0},
		{domain.GeoPoint{Lon: -100.01, Lat: 40.02}, 0, 0},
		{domain.GeoPoint{Lon: -100.00, Lat: 40.01}, 400, 300},
	}
	for _, tc := range cases {
		x, y, err := geospatial.Project(tc.p, testBox, 800, 600)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(x-tc.x) > 1e-6 || math.Abs(y-tc.y) > 1e-6 {
			t.Errorf("%v: expected (%v,%v), got (%v,%v)", tc.p, tc.x, tc.y, x, y)
		}
	}
}

func TestProject_OrderPreserving(t *testing.T) {
	prevX := math.Inf(-1)
	for lon := -100.05; lon <= -99.95; lon += 0.001 {
		x, _, err := geospatial.Project(domain.GeoPoint{Lon: lon, Lat: 40.01}, testBox, 800, 600)
		if err != nil {
			t.Fatal(err)
		}
		if x < prevX {
			t.Fatalf("x decreased at lon %v: %v < %v", lon, x, prevX)
		}
		prevX = x
	}

	prevY := math.Inf(-1)
	for lat := 40.05; lat >= 39.95; lat -= 0.001 {
		_, y, err := geospatial.Project(domain.GeoPoint{Lon: -100, Lat: lat}, testBox, 800, 600)
		if err != nil {
			t.Fatal(err)
		}
		if y < prevY {
			t.Fatalf("y decreased moving south at lat %v", lat)
		}
		prevY = y
	}
}

func TestProject_OutsideBoxNotClamped(t *testing.T) {
	x, y, err := geospatial.Project(domain.GeoPoint{Lon: -100.02, Lat: 40.03}, testBox, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	if x >= 0 || y >= 0 {
		t.Errorf("expected negative pixel coordinates, got (%v,%v)", x, y)
	}
}

func TestProject_DegenerateBox(t *testing.T) {
	boxes := []domain.BoundingBox{
		{MinLon: -100, MinLat: 40, MaxLon: -100, MaxLat: 41},
		{MinLon: -100, MinLat: 40, MaxLon: -99, MaxLat: 40},
		{MinLon: -99, MinLat: 40, MaxLon: -100, MaxLat: 41},
		{MinLon: math.NaN(), MinLat: 40, MaxLon: -99, MaxLat: 41},
	}
	for _, b := range boxes {
		x, y, err := geospatial.Project(domain.GeoPoint{Lon: -100, Lat: 40}, b, 800, 600)
		if !errors.Is(err, domain.ErrInvalidBoundingBox) {
			t.Errorf("%+v: expected ErrInvalidBoundingBox, got %v (x=%v y=%v)", b, err, x, y)
		}
	}
}

func TestProject_InvalidSize(t *testing.T) {
	_, _, err := geospatial.Project(domain.GeoPoint{Lon: -100, Lat: 40.01}, testBox, 0, 600)
	if !errors.Is(err, domain.ErrInvalidImageSize) {
		t.Errorf("expected ErrInvalidImageSize, got %v", err)
	}
}

func TestProjectRing(t *testing.T) {
	ring := domain.Ring{
		{Lon: -100.01, Lat: 40.00},
		{Lon: -99.99, Lat: 40.00},
		{Lon: -99.99, Lat: 40.02},
		{Lon: -100.01, Lat: 40.02},
	}
	px, err := geospatial.ProjectRing(ring, testBox, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	want := []geospatial.Pixel{{X: 0, Y: 600}, {X: 800, Y: 600}, {X: 800, Y: 0}, {X: 0, Y: 0}}
	for i := range want {
		if math.Abs(px[i].X-want[i].X) > 1e-6 || math.Abs(px[i].Y-want[i].Y) > 1e-6 {
			t.Errorf("vertex %d: expected %v, got %v", i, want[i], px[i])
		}
	}
}
