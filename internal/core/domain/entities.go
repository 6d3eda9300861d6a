package domain

import (
	"time"
)

// Property is a parcel with its geocoded location and aerial image.
type Property struct {
	ID          string      `json:"id"`
	Location    GeoPoint    `json:"location"`
	Parcel      Geometry    `json:"-"`
	Building    Geometry    `json:"-"`
	ImageBounds BoundingBox `json:"image_bounds"`
	ImageURL    string      `json:"image_url"`
	Distance    *float64    `json:"distance,omitempty"` // computed field
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Record returns the property's location for proximity search.
func (p *Property) Record() LocationRecord {
	return LocationRecord{ID: p.ID, Point: p.Location}
}

// PropertyEvent is published whenever stored properties change.
type PropertyEvent struct {
	IDs        []string  `json:"ids"`
	Source     string    `json:"source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
