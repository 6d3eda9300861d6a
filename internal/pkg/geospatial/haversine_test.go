package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/geospatial"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Madrid Atocha, roughly 320 km as the crow flies.
	d := geospatial.Haversine(43.2609, -2.9271, 40.4066, -3.6892)
	if d < 310_000 || d > 330_000 {
		t.Errorf("expected ~320km, got %.0fm", d)
	}
}

func TestHaversine_Zero(t *testing.T) {
	if d := geospatial.Haversine(40, -100, 40, -100); d != 0 {
		t.Errorf("expected 0, got %g", d)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := geospatial.Haversine(0, 0, 0, 180)
	want := math.Pi * geospatial.EarthRadiusMeters
	if math.Abs(d-want) > 1 {
		t.Errorf("expected %.0f, got %.0f", want, d)
	}
}

func TestDistance_EastWestShrinksWithLatitude(t *testing.T) {
	equator := geospatial.Distance(domain.GeoPoint{Lon: 0, Lat: 0}, domain.GeoPoint{Lon: 1, Lat: 0})
	north := geospatial.Distance(domain.GeoPoint{Lon: 0, Lat: 60}, domain.GeoPoint{Lon: 1, Lat: 60})
	if ratio := north / equator; math.Abs(ratio-0.5) > 0.01 {
		t.Errorf("expected one degree at 60N to be half the equator, ratio %.3f", ratio)
	}
}

func TestDestination_RoundTrip(t *testing.T) {
	origin := domain.GeoPoint{Lon: -99.99, Lat: 40.01}
	for _, dist := range []float64{1, 100, 5000, 9000, 250_000} {
		for _, brg := range []float64{0, 45, 90, 180, 270} {
			p := geospatial.Destination(origin, brg, dist)
			got := geospatial.Distance(origin, p)
			if math.Abs(got-dist) > 1e-6*dist+1e-6 {
				t.Errorf("bearing %v dist %v: round trip gave %v", brg, dist, got)
			}
		}
	}
}

func TestDestination_WrapsAntimeridian(t *testing.T) {
	p := geospatial.Destination(domain.GeoPoint{Lon: 179.99, Lat: 0}, 90, 5000)
	if p.Lon > -179 || p.Lon < -180 {
		t.Errorf("expected longitude just east of -180, got %v", p.Lon)
	}
}

func TestSearchBounds_ContainsCircle(t *testing.T) {
	cases := []struct {
		name   string
		center domain.GeoPoint
		radius float64
		rects  int
	}{
		{"mid latitude", domain.GeoPoint{Lon: -2.93, Lat: 43.26}, 10_000, 1},
		{"east of antimeridian", domain.GeoPoint{Lon: -179.95, Lat: -17}, 20_000, 2},
		{"west of antimeridian", domain.GeoPoint{Lon: 179.95, Lat: 65}, 20_000, 2},
		{"north pole", domain.GeoPoint{Lon: 10, Lat: 89.99}, 5_000, 1},
		{"south pole", domain.GeoPoint{Lon: -10, Lat: -89.95}, 10_000, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			boxes := geospatial.SearchBounds(tc.center, tc.radius)
			if len(boxes) != tc.rects {
				t.Fatalf("expected %d rects, got %d: %+v", tc.rects, len(boxes), boxes)
			}
			for brg := 0.0; brg < 360; brg += 7.5 {
				p := geospatial.Destination(tc.center, brg, tc.radius)
				if !inAny(boxes, p) {
					t.Errorf("point at bearing %v (%v) not covered by %+v", brg, p, boxes)
				}
			}
		})
	}
}

func TestSearchBounds_WholeWorld(t *testing.T) {
	boxes := geospatial.SearchBounds(domain.GeoPoint{}, 30_000_000)
	if len(boxes) != 1 || boxes[0].MinLon != -180 || boxes[0].MaxLat != 90 {
		t.Errorf("expected whole world, got %+v", boxes)
	}
}

func inAny(boxes []domain.BoundingBox, p domain.GeoPoint) bool {
	for _, b := range boxes {
		if p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat {
			return true
		}
	}
	return false
}
