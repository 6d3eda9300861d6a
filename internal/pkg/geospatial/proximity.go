package geospatial

import (
	"sort"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// Index answers "which records lie within radius of a point", nearest first.
// Implementations must agree exactly with FindWithin over the same records.
type Index interface {
	FindWithin(q domain.DistanceQuery) ([]string, error)
	Len() int
}

type hit struct {
	id   string
	dist float64
	ord  int
}

// FindWithin returns the IDs of records whose great-circle distance to
// q.Point is at most q.RadiusMeters, ascending by distance. Records at equal
// distance keep their input order. Records with out-of-range points never match.
func FindWithin(q domain.DistanceQuery, records []domain.LocationRecord) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var hits []hit
	for i, r := range records {
		if !r.Point.Valid() {
			continue
		}
		if d := Distance(q.Point, r.Point); d <= q.RadiusMeters {
			hits = append(hits, hit{id: r.ID, dist: d, ord: i})
		}
	}
	return rank(hits), nil
}

// rank sorts by distance, then by input ordinal, and returns the IDs.
func rank(hits []hit) []string {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].ord < hits[j].ord
	})

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// LinearIndex scans every record on each query.
type LinearIndex struct {
	records []domain.LocationRecord
}

// NewLinearIndex copies records into a scan-only index.
func NewLinearIndex(records []domain.LocationRecord) *LinearIndex {
	cp := make([]domain.LocationRecord, len(records))
	copy(cp, records)
	return &LinearIndex{records: cp}
}

func (l *LinearIndex) FindWithin(q domain.DistanceQuery) ([]string, error) {
	return FindWithin(q, l.records)
}

func (l *LinearIndex) Len() int { return len(l.records) }
