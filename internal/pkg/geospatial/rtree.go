package geospatial

import (
	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// pointTolerance gives each stored point a tiny non-empty rectangle.
const pointTolerance = 1e-9

// spatialRecord wraps a location so it satisfies rtreego.Spatial.
type spatialRecord struct {
	record domain.LocationRecord
	ord    int
	rect   rtreego.Rect
}

func (s *spatialRecord) Bounds() rtreego.Rect {
	return s.rect
}

// RTreeIndex prefilters candidates by bounding rectangle and then applies the
// exact distance test. It is immutable once built and safe for concurrent use.
type RTreeIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewRTreeIndex bulk-loads records into an R-tree keyed on (lon, lat).
func NewRTreeIndex(records []domain.LocationRecord) *RTreeIndex {
	objs := make([]rtreego.Spatial, 0, len(records))
	for i, r := range records {
		if !r.Point.Valid() {
			continue
		}
		objs = append(objs, &spatialRecord{
			record: r,
			ord:    i,
			rect:   rtreego.Point{r.Point.Lon, r.Point.Lat}.ToRect(pointTolerance),
		})
	}
	return &RTreeIndex{
		tree: rtreego.NewTree(2, 25, 50, objs...),
		size: len(objs),
	}
}

func (t *RTreeIndex) Len() int { return t.size }

func (t *RTreeIndex) FindWithin(q domain.DistanceQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	var hits []hit
	for _, b := range SearchBounds(q.Point, q.RadiusMeters) {
		rect, err := rtreego.NewRect(
			rtreego.Point{b.MinLon - pointTolerance, b.MinLat - pointTolerance},
			[]float64{b.MaxLon - b.MinLon + 2*pointTolerance, b.MaxLat - b.MinLat + 2*pointTolerance},
		)
		if err != nil {
			return nil, err
		}
		for _, obj := range t.tree.SearchIntersect(rect) {
			s := obj.(*spatialRecord)
			if _, dup := seen[s.ord]; dup {
				continue
			}
			seen[s.ord] = struct{}{}
			if d := Distance(q.Point, s.record.Point); d <= q.RadiusMeters {
				hits = append(hits, hit{id: s.record.ID, dist: d, ord: s.ord})
			}
		}
	}
	return rank(hits), nil
}
