// Package geocodec converts between GeoJSON and the domain geometry model.
package geocodec

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// DecodeGeometry parses a GeoJSON geometry object. Types other than Polygon
// and MultiPolygon decode to domain.UnsupportedGeometry; empty input gives nil.
func DecodeGeometry(data []byte) (domain.Geometry, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: geojson geometry: %v", domain.ErrDecode, err)
	}
	return FromOrb(g.Geometry()), nil
}

// FromOrb maps an orb geometry onto the domain variant.
func FromOrb(g orb.Geometry) domain.Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Polygon:
		return polygonFromOrb(v)
	case orb.MultiPolygon:
		mp := make(domain.MultiPolygon, 0, len(v))
		for _, p := range v {
			mp = append(mp, polygonFromOrb(p))
		}
		return mp
	default:
		return domain.UnsupportedGeometry{Type: g.GeoJSONType()}
	}
}

func polygonFromOrb(p orb.Polygon) domain.Polygon {
	var out domain.Polygon
	for i, r := range p {
		ring := make(domain.Ring, len(r))
		for j, pt := range r {
			ring[j] = domain.GeoPoint{Lon: pt.Lon(), Lat: pt.Lat()}
		}
		if i == 0 {
			out.Outer = ring
			continue
		}
		out.Holes = append(out.Holes, ring)
	}
	return out
}

// ToOrb maps a domain geometry back to orb. Unsupported geometry has no
// coordinates to carry and maps to nil.
func ToOrb(g domain.Geometry) orb.Geometry {
	switch v := g.(type) {
	case domain.Polygon:
		return polygonToOrb(v)
	case domain.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			mp = append(mp, polygonToOrb(p))
		}
		return mp
	default:
		return nil
	}
}

func polygonToOrb(p domain.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, 1+len(p.Holes))
	out = append(out, ringToOrb(p.Outer))
	for _, h := range p.Holes {
		out = append(out, ringToOrb(h))
	}
	return out
}

func ringToOrb(r domain.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, pt := range r {
		out[i] = orb.Point{pt.Lon, pt.Lat}
	}
	return out
}

// EncodeGeometry renders g as a GeoJSON geometry object, or nil when g has no
// drawable coordinates.
func EncodeGeometry(g domain.Geometry) (json.RawMessage, error) {
	og := ToOrb(g)
	if og == nil {
		return nil, nil
	}
	data, err := json.Marshal(geojson.NewGeometry(og))
	if err != nil {
		return nil, fmt.Errorf("%w: geojson geometry: %v", domain.ErrEncode, err)
	}
	return data, nil
}

// DecodeProperties parses a FeatureCollection of properties. Each feature's
// geometry is the geocoded Point; its properties carry parcel_geo,
// building_geo, image_bounds and image_url. Features without an id get a
// random UUID.
func DecodeProperties(data []byte) ([]domain.Property, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: feature collection: %v", domain.ErrDecode, err)
	}

	props := make([]domain.Property, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, err := propertyFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		props = append(props, p)
	}
	return props, nil
}

func propertyFromFeature(f *geojson.Feature) (domain.Property, error) {
	var p domain.Property

	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return p, fmt.Errorf("%w: geometry must be a Point", domain.ErrDecode)
	}
	p.Location = domain.GeoPoint{Lon: pt.Lon(), Lat: pt.Lat()}
	if !p.Location.Valid() {
		return p, fmt.Errorf("%w: location out of range", domain.ErrDecode)
	}

	p.ID = featureID(f)

	var err error
	if p.Parcel, err = nestedGeometry(f.Properties, "parcel_geo"); err != nil {
		return p, err
	}
	if p.Building, err = nestedGeometry(f.Properties, "building_geo"); err != nil {
		return p, err
	}

	if raw, ok := f.Properties["image_bounds"]; ok && raw != nil {
		data, _ := json.Marshal(raw)
		if err := json.Unmarshal(data, &p.ImageBounds); err != nil {
			return p, fmt.Errorf("%w: image_bounds: %v", domain.ErrDecode, err)
		}
	}
	if url, ok := f.Properties["image_url"].(string); ok {
		p.ImageURL = url
	}

	return p, nil
}

func featureID(f *geojson.Feature) string {
	id := f.ID
	if id == nil {
		id = f.Properties["id"]
	}
	switch v := id.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return uuid.NewString()
}

func nestedGeometry(props geojson.Properties, key string) (domain.Geometry, error) {
	raw, ok := props[key]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, key, err)
	}
	g, err := DecodeGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return g, nil
}
