package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the point lies within the WGS 84 coordinate ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// BoundingBox is the geographic extent that an image covers edge-to-edge.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Validate returns ErrInvalidBoundingBox unless min < max on both axes.
// Written as a negated comparison so NaN is rejected too.
func (b BoundingBox) Validate() error {
	if !(b.MinLon < b.MaxLon) || !(b.MinLat < b.MaxLat) {
		return fmt.Errorf("%w: [%g, %g, %g, %g]", ErrInvalidBoundingBox, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	}
	if math.IsInf(b.MaxLon-b.MinLon, 0) || math.IsInf(b.MaxLat-b.MinLat, 0) {
		return fmt.Errorf("%w: infinite extent", ErrInvalidBoundingBox)
	}
	return nil
}

// MarshalJSON encodes the box as [minLon, minLat, maxLon, maxLat].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat})
}

// UnmarshalJSON decodes the [minLon, minLat, maxLon, maxLat] form.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidBoundingBox, len(v))
	}
	*b = BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	return nil
}

// BoundingBoxFromSlice builds a box from the stored image_bounds array.
func BoundingBoxFromSlice(v []float64) (BoundingBox, error) {
	if len(v) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidBoundingBox, len(v))
	}
	return BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
}

// Slice returns the box in image_bounds order.
func (b BoundingBox) Slice() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Ring is a closed sequence of vertices. The closing vertex may or may not repeat the first one.
type Ring []GeoPoint

// Geometry is one of Polygon, MultiPolygon or UnsupportedGeometry.
type Geometry interface {
	GeometryType() string
	isGeometry()
}

// Polygon has one outer ring and optional holes. Holes are kept but never rendered.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// MultiPolygon is an ordered list of polygons.
type MultiPolygon []Polygon

// UnsupportedGeometry carries a geometry kind that cannot be drawn as an outline.
type UnsupportedGeometry struct {
	Type string
}

func (Polygon) GeometryType() string               { return "Polygon" }
func (MultiPolygon) GeometryType() string          { return "MultiPolygon" }
func (g UnsupportedGeometry) GeometryType() string { return g.Type }

func (Polygon) isGeometry()             {}
func (MultiPolygon) isGeometry()        {}
func (UnsupportedGeometry) isGeometry() {}

// OuterRing returns the ring that outlines g.
// For a MultiPolygon only the first polygon is used.
func OuterRing(g Geometry) (Ring, error) {
	var ring Ring
	switch v := g.(type) {
	case Polygon:
		ring = v.Outer
	case MultiPolygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty MultiPolygon", ErrUnsupportedGeometry)
		}
		ring = v[0].Outer
	case UnsupportedGeometry:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, v.Type)
	case nil:
		return nil, fmt.Errorf("%w: no geometry", ErrUnsupportedGeometry)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}

	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: ring has %d vertices", ErrUnsupportedGeometry, len(ring))
	}
	return ring, nil
}

// LocationRecord is the unit the proximity search runs over.
type LocationRecord struct {
	ID    string
	Point GeoPoint
}

// DistanceQuery asks for records within RadiusMeters of Point.
type DistanceQuery struct {
	Point        GeoPoint
	RadiusMeters float64
}

// Validate returns ErrInvalidQuery for a non-positive radius or an out-of-range point.
func (q DistanceQuery) Validate() error {
	if math.IsNaN(q.RadiusMeters) || math.IsInf(q.RadiusMeters, 0) || q.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be a positive number of meters, got %g", ErrInvalidQuery, q.RadiusMeters)
	}
	if !q.Point.Valid() {
		return fmt.Errorf("%w: point (%g, %g) out of range", ErrInvalidQuery, q.Point.Lon, q.Point.Lat)
	}
	return nil
}
