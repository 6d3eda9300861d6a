package geospatial

import (
	"fmt"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// Pixel is a position on an image grid. Row 0 is the top (north) edge.
type Pixel struct {
	X float64
	Y float64
}

// Project maps p linearly from bbox onto a width×height pixel grid.
// Points outside bbox land outside the grid; nothing is clamped.
func Project(p domain.GeoPoint, bbox domain.BoundingBox, width, height int) (x, y float64, err error) {
	if err := bbox.Validate(); err != nil {
		return 0, 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", domain.ErrInvalidImageSize, width, height)
	}

	x = (p.Lon - bbox.MinLon) / (bbox.MaxLon - bbox.MinLon) * float64(width)
	y = (bbox.MaxLat - p.Lat) / (bbox.MaxLat - bbox.MinLat) * float64(height)
	return x, y, nil
}

// ProjectRing projects every vertex of ring in order.
func ProjectRing(ring domain.Ring, bbox domain.BoundingBox, width, height int) ([]Pixel, error) {
	out := make([]Pixel, 0, len(ring))
	for _, p := range ring {
		x, y, err := Project(p, bbox, width, height)
		if err != nil {
			return nil, err
		}
		out = append(out, Pixel{X: x, Y: y})
	}
	return out, nil
}
