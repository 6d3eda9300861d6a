package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

var tri = domain.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}}

func TestOuterRing(t *testing.T) {
	second := domain.Ring{{Lon: 5, Lat: 5}, {Lon: 6, Lat: 5}, {Lon: 6, Lat: 6}}

	tests := []struct {
		name    string
		g       domain.Geometry
		want    domain.Ring
		wantErr bool
	}{
		{"polygon", domain.Polygon{Outer: tri, Holes: []domain.Ring{second}}, tri, false},
		{"multipolygon uses first", domain.MultiPolygon{{Outer: tri}, {Outer: second}}, tri, false},
		{"empty multipolygon", domain.MultiPolygon{}, nil, true},
		{"unsupported", domain.UnsupportedGeometry{Type: "LineString"}, nil, true},
		{"nil", nil, nil, true},
		{"short ring", domain.Polygon{Outer: tri[:2]}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := domain.OuterRing(tt.g)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrUnsupportedGeometry) {
					t.Fatalf("expected ErrUnsupportedGeometry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ring) != len(tt.want) || ring[0] != tt.want[0] {
				t.Errorf("expected %v, got %v", tt.want, ring)
			}
		})
	}
}

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name string
		box  domain.BoundingBox
		ok   bool
	}{
		{"valid", domain.BoundingBox{MinLon: -100.01, MinLat: 40, MaxLon: -99.99, MaxLat: 40.02}, true},
		{"flat lon", domain.BoundingBox{MinLon: -100, MinLat: 40, MaxLon: -100, MaxLat: 41}, false},
		{"flat lat", domain.BoundingBox{MinLon: -100, MinLat: 40, MaxLon: -99, MaxLat: 40}, false},
		{"inverted", domain.BoundingBox{MinLon: 1, MinLat: 0, MaxLon: 0, MaxLat: 1}, false},
		{"zero", domain.BoundingBox{}, false},
		{"nan", domain.BoundingBox{MinLon: math.NaN(), MinLat: 0, MaxLon: 1, MaxLat: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrInvalidBoundingBox) {
				t.Errorf("expected ErrInvalidBoundingBox, got %v", err)
			}
		})
	}
}

func TestBoundingBox_JSON(t *testing.T) {
	var b domain.BoundingBox
	if err := json.Unmarshal([]byte(`[-80.1, 26.8, -80.0, 26.9]`), &b); err != nil {
		t.Fatal(err)
	}
	if b != (domain.BoundingBox{MinLon: -80.1, MinLat: 26.8, MaxLon: -80.0, MaxLat: 26.9}) {
		t.Errorf("unexpected box %+v", b)
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[-80.1,26.8,-80,26.9]` {
		t.Errorf("unexpected encoding %s", data)
	}

	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &b); !errors.Is(err, domain.ErrInvalidBoundingBox) {
		t.Errorf("expected ErrInvalidBoundingBox for 3 values, got %v", err)
	}
	if _, err := domain.BoundingBoxFromSlice(nil); !errors.Is(err, domain.ErrInvalidBoundingBox) {
		t.Errorf("expected ErrInvalidBoundingBox for nil slice, got %v", err)
	}
}

func TestDistanceQuery_Validate(t *testing.T) {
	here := domain.GeoPoint{Lon: -80, Lat: 26}
	bad := []domain.DistanceQuery{
		{Point: here, RadiusMeters: 0},
		{Point: here, RadiusMeters: -5},
		{Point: here, RadiusMeters: math.Inf(1)},
		{Point: here, RadiusMeters: math.NaN()},
		{Point: domain.GeoPoint{Lon: 181, Lat: 0}, RadiusMeters: 10},
		{Point: domain.GeoPoint{Lon: 0, Lat: -90.5}, RadiusMeters: 10},
	}
	for _, q := range bad {
		if err := q.Validate(); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("%+v: expected ErrInvalidQuery, got %v", q, err)
		}
	}
	if err := (domain.DistanceQuery{Point: domain.GeoPoint{Lon: 180, Lat: 90}, RadiusMeters: 1}).Validate(); err != nil {
		t.Errorf("range edges should be valid: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	for _, in := range []string{"red", "RED", "Orange", "silver"} {
		if _, err := domain.ParseColor(in); err != nil {
			t.Errorf("ParseColor(%q): unexpected error %v", in, err)
		}
	}
	for _, in := range []string{"", "crimson", "#ff0000", " red ", "red\n"} {
		if _, err := domain.ParseColor(in); !errors.Is(err, domain.ErrInvalidColor) {
			t.Errorf("ParseColor(%q): expected ErrInvalidColor, got %v", in, err)
		}
	}
	if len(domain.Colors) != 12 {
		t.Errorf("expected 12 colours, got %d", len(domain.Colors))
	}
	for _, c := range domain.Colors {
		if c.RGBA().A != 0xff {
			t.Errorf("%s is not opaque", c)
		}
	}
}
