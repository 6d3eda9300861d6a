package geospatial

import (
	"math"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// EarthRadiusMeters is the WGS 84 mean radius (2a+b)/3, the sphere PostGIS
// measures geography on when use_spheroid is false.
const EarthRadiusMeters = 6371008.7714

const earthRadiusM = EarthRadiusMeters

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a slightly above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Distance is the great-circle distance in meters between a and b.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Destination returns the point reached by travelling distanceMeters from p
// along the initial bearing (degrees clockwise from north).
func Destination(p domain.GeoPoint, bearingDeg, distanceMeters float64) domain.GeoPoint {
	d := distanceMeters / earthRadiusM
	brg := toRad(bearingDeg)
	lat1 := toRad(p.Lat)
	lon1 := toRad(p.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	lon := toDeg(lon2)
	// normalise to [-180, 180)
	lon = math.Mod(lon+540, 360) - 180
	return domain.GeoPoint{Lon: lon, Lat: toDeg(lat2)}
}

// SearchBounds returns lon/lat rectangles that together contain every point
// within radiusMeters of p. Near the antimeridian the area is split in two;
// when the circle reaches a pole the full longitude range is returned.
func SearchBounds(p domain.GeoPoint, radiusMeters float64) []domain.BoundingBox {
	// widen a little so rounding never drops a point sitting on the radius
	delta := radiusMeters/earthRadiusM*(1+1e-9) + 1e-12
	if delta >= math.Pi {
		return []domain.BoundingBox{{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}}
	}

	lat := toRad(p.Lat)
	lon := toRad(p.Lon)
	minLat := lat - delta
	maxLat := lat + delta

	if minLat <= -math.Pi/2 || maxLat >= math.Pi/2 {
		return []domain.BoundingBox{{
			MinLon: -180,
			MinLat: toDeg(math.Max(minLat, -math.Pi/2)),
			MaxLon: 180,
			MaxLat: toDeg(math.Min(maxLat, math.Pi/2)),
		}}
	}

	dLon := math.Asin(math.Min(1, math.Sin(delta)/math.Cos(lat)))
	minLon := lon - dLon
	maxLon := lon + dLon

	latLo, latHi := toDeg(minLat), toDeg(maxLat)
	switch {
	case minLon < -math.Pi:
		return []domain.BoundingBox{
			{MinLon: toDeg(minLon + 2*math.Pi), MinLat: latLo, MaxLon: 180, MaxLat: latHi},
			{MinLon: -180, MinLat: latLo, MaxLon: toDeg(maxLon), MaxLat: latHi},
		}
	case maxLon > math.Pi:
		return []domain.BoundingBox{
			{MinLon: toDeg(minLon), MinLat: latLo, MaxLon: 180, MaxLat: latHi},
			{MinLon: -180, MinLat: latLo, MaxLon: toDeg(maxLon - 2*math.Pi), MaxLat: latHi},
		}
	}
	return []domain.BoundingBox{{MinLon: toDeg(minLon), MinLat: latLo, MaxLon: toDeg(maxLon), MaxLat: latHi}}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
