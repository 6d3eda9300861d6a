package http

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/geocodec"
)

// propertyResponse is the wire shape of a stored property.
type propertyResponse struct {
	ID          string          `json:"id"`
	Longitude   float64         `json:"longitude"`
	Latitude    float64         `json:"latitude"`
	GeocodeGeo  json.RawMessage `json:"geocode_geo"`
	ParcelGeo   json.RawMessage `json:"parcel_geo"`
	BuildingGeo json.RawMessage `json:"building_geo"`
	ImageBounds []float64       `json:"image_bounds"`
	ImageURL    string          `json:"image_url"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

var jsonNull = json.RawMessage("null")

func toPropertyResponse(p *domain.Property) (propertyResponse, error) {
	out := propertyResponse{
		ID:          p.ID,
		Longitude:   p.Location.Lon,
		Latitude:    p.Location.Lat,
		ParcelGeo:   jsonNull,
		BuildingGeo: jsonNull,
		ImageBounds: p.ImageBounds.Slice(),
		ImageURL:    p.ImageURL,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		out.UpdatedAt = &t
	}

	point, err := json.Marshal(geojson.NewGeometry(orb.Point{p.Location.Lon, p.Location.Lat}))
	if err != nil {
		return out, fmt.Errorf("%w: geocode_geo: %v", domain.ErrEncode, err)
	}
	out.GeocodeGeo = point

	if raw, err := geocodec.EncodeGeometry(p.Parcel); err != nil {
		return out, err
	} else if raw != nil {
		out.ParcelGeo = raw
	}
	if raw, err := geocodec.EncodeGeometry(p.Building); err != nil {
		return out, err
	} else if raw != nil {
		out.BuildingGeo = raw
	}
	return out, nil
}

// ListPropertiesHandler returns a page of stored properties.
func ListPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromQuery(c)

		props, total, err := deps.Properties.List(c.UserContext(), page.Offset, page.Limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		data := make([]propertyResponse, 0, len(props))
		for i := range props {
			r, err := toPropertyResponse(&props[i])
			if err != nil {
				return errFromDomain(c, err)
			}
			data = append(data, r)
		}

		page.Total = total
		SetLinkHeaders(c, page)
		return c.JSON(PaginatedResponse{Data: data, Pagination: page})
	}
}

// LegacyListPropertiesHandler returns every stored property as a bare array,
// the shape the unversioned /properties route has always served.
func LegacyListPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		props, err := deps.Properties.ListAll(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		data := make([]propertyResponse, 0, len(props))
		for i := range props {
			r, err := toPropertyResponse(&props[i])
			if err != nil {
				return errFromDomain(c, err)
			}
			data = append(data, r)
		}
		return c.JSON(data)
	}
}

// GetPropertyHandler returns one property by ID.
func GetPropertyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "property id is required")
		}
		p, err := deps.Properties.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		r, err := toPropertyResponse(p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(r)
	}
}

// findRequest is a GeoJSON Point Feature with the radius in meters under
// "x-distance". Numbers stay loosely typed so wrong types get the matching
// validation message rather than a decode error.
type findRequest struct {
	Type     string `json:"type"`
	Geometry *struct {
		Type        string `json:"type"`
		Coordinates []any  `json:"coordinates"`
	} `json:"geometry"`
	Distance any `json:"x-distance"`
}

// parseFindRequest validates a find request body. The returned message is
// empty when the query is usable.
func parseFindRequest(body []byte) (domain.DistanceQuery, string) {
	var q domain.DistanceQuery

	var req findRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return q, "Invalid JSON body"
	}
	if req.Type != "Feature" {
		return q, `Invalid GeoJSON: type must be "Feature"`
	}
	if req.Geometry == nil || req.Geometry.Type != "Point" {
		return q, `Invalid GeoJSON: geometry.type must be "Point"`
	}
	if len(req.Geometry.Coordinates) != 2 {
		return q, "Invalid GeoJSON point: coordinates must be [longitude, latitude]"
	}
	lon, okLon := req.Geometry.Coordinates[0].(float64)
	lat, okLat := req.Geometry.Coordinates[1].(float64)
	q.Point = domain.GeoPoint{Lon: lon, Lat: lat}
	if !okLon || !okLat || !q.Point.Valid() {
		return q, "Invalid coordinates"
	}

	radius, ok := req.Distance.(float64)
	if !ok || math.IsInf(radius, 0) || radius <= 0 {
		return q, "x-distance is required and must be a positive number"
	}
	q.RadiusMeters = radius
	return q, ""
}

// FindPropertiesHandler returns the ids of properties within x-distance
// meters of the posted point, nearest first.
func FindPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, msg := parseFindRequest(c.Body())
		if msg != "" {
			return errBadRequest(c, msg)
		}

		ids, err := deps.Properties.FindNear(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(ids)
	}
}

// parseImageOptions validates the overlay, parcel and building query params.
func parseImageOptions(c *fiber.Ctx) (domain.ImageOptions, string) {
	var opts domain.ImageOptions

	// present-but-empty params are invalid, so presence is checked on the raw args
	args := c.Context().QueryArgs()

	if args.Has("overlay") {
		if c.Query("overlay") != "yes" {
			return opts, `Invalid overlay parameter: must be "yes" if provided`
		}
		opts.Overlay = true
	}

	for _, layer := range []struct {
		name string
		dst  **domain.Color
	}{
		{"parcel", &opts.ParcelColor},
		{"building", &opts.BuildingColor},
	} {
		if !args.Has(layer.name) {
			continue
		}
		v := c.Query(layer.name)
		col, err := domain.ParseColor(v)
		if err != nil {
			return opts, fmt.Sprintf(`Invalid %s color: "%s". Must be a valid color name (e.g., red, green, orange)`, layer.name, v)
		}
		*layer.dst = &col
	}
	return opts, ""
}

// DisplayPropertyHandler serves the property's aerial image with optional
// parcel and building outlines.
func DisplayPropertyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "property id is required")
		}
		opts, msg := parseImageOptions(c)
		if msg != "" {
			return errBadRequest(c, msg)
		}

		img, err := deps.Images.Render(c.UserContext(), id, opts)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set(fiber.HeaderContentType, img.Format.ContentType())
		c.Set("Cache-Control", "public, max-age=3600")
		return c.Send(img.Data)
	}
}
