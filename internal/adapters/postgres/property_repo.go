package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/geocodec"
)

// PropertyRepo implements ports.PropertyRepository with pgx and PostGIS.
type PropertyRepo struct {
	db *DB
}

// NewPropertyRepo creates a new PropertyRepo.
func NewPropertyRepo(db *DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

const propertyColumns = `
	id,
	ST_X(geocode_geo::geometry) AS lon,
	ST_Y(geocode_geo::geometry) AS lat,
	ST_AsGeoJSON(parcel_geo) AS parcel_geo,
	ST_AsGeoJSON(building_geo) AS building_geo,
	image_bounds,
	image_url,
	updated_at`

const upsertProperty = `
	INSERT INTO properties (id, geocode_geo, parcel_geo, building_geo, image_bounds, image_url, updated_at)
	VALUES (
		$1,
		ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography,
		ST_SetSRID(ST_GeomFromGeoJSON($4::text), 4326)::geography,
		ST_SetSRID(ST_GeomFromGeoJSON($5::text), 4326)::geography,
		$6, $7, now()
	)
	ON CONFLICT (id) DO UPDATE
	SET geocode_geo = EXCLUDED.geocode_geo,
	    parcel_geo = EXCLUDED.parcel_geo,
	    building_geo = EXCLUDED.building_geo,
	    image_bounds = EXCLUDED.image_bounds,
	    image_url = EXCLUDED.image_url,
	    updated_at = now()`

// findNearbySQL measures on the sphere (use_spheroid false) so results match
// the in-memory index at the radius boundary.
const findNearbySQL = `
	SELECT id
	FROM properties
	WHERE ST_DWithin(geocode_geo, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3, false)
	ORDER BY ST_Distance(geocode_geo, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, false), id`

// propertyRow is one scanned row before geometry decoding.
type propertyRow struct {
	ID          string
	Lon, Lat    float64
	Parcel      *string
	Building    *string
	ImageBounds []float64
	ImageURL    *string
	UpdatedAt   time.Time
}

func (r *propertyRow) dest() []any {
	return []any{&r.ID, &r.Lon, &r.Lat, &r.Parcel, &r.Building, &r.ImageBounds, &r.ImageURL, &r.UpdatedAt}
}

// toDomain decodes the row's GeoJSON columns into a Property.
func (r *propertyRow) toDomain() (domain.Property, error) {
	p := domain.Property{
		ID:        r.ID,
		Location:  domain.GeoPoint{Lon: r.Lon, Lat: r.Lat},
		UpdatedAt: r.UpdatedAt,
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}

	var err error
	if r.Parcel != nil {
		if p.Parcel, err = geocodec.DecodeGeometry([]byte(*r.Parcel)); err != nil {
			return p, fmt.Errorf("property %s parcel_geo: %w", r.ID, err)
		}
	}
	if r.Building != nil {
		if p.Building, err = geocodec.DecodeGeometry([]byte(*r.Building)); err != nil {
			return p, fmt.Errorf("property %s building_geo: %w", r.ID, err)
		}
	}
	// a malformed box is kept zero so the renderer rejects it per request
	if b, err := domain.BoundingBoxFromSlice(r.ImageBounds); err == nil {
		p.ImageBounds = b
	}
	return p, nil
}

// encodeNullable returns the GeoJSON text for g, or nil for SQL NULL.
func encodeNullable(g domain.Geometry) (*string, error) {
	data, err := geocodec.EncodeGeometry(g)
	if err != nil || data == nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// UpsertBatch inserts or updates many properties using pgx.Batch.
func (r *PropertyRepo) UpsertBatch(ctx context.Context, props []domain.Property) error {
	batch := &pgx.Batch{}
	for _, p := range props {
		parcel, err := encodeNullable(p.Parcel)
		if err != nil {
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
		building, err := encodeNullable(p.Building)
		if err != nil {
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
		batch.Queue(upsertProperty, p.ID, p.Location.Lon, p.Location.Lat,
			parcel, building, p.ImageBounds.Slice(), p.ImageURL)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range props {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a property by id.
func (r *PropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	var row propertyRow
	err := r.db.Pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id).Scan(row.dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns multiple properties by id, ordered by id.
func (r *PropertyRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ANY($1) ORDER BY id`, ids)
}

// List returns a page of properties ordered by id.
func (r *PropertyRepo) List(ctx context.Context, offset, limit int) ([]domain.Property, error) {
	return r.query(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
}

// Count returns the number of stored properties.
func (r *PropertyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM properties`).Scan(&n)
	return n, err
}

// ListLocations returns every geocoded point, ordered by id.
func (r *PropertyRepo) ListLocations(ctx context.Context) ([]domain.LocationRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, ST_X(geocode_geo::geometry), ST_Y(geocode_geo::geometry)
		FROM properties
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.LocationRecord
	for rows.Next() {
		var rec domain.LocationRecord
		if err := rows.Scan(&rec.ID, &rec.Point.Lon, &rec.Point.Lat); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindNearby returns ids within q.RadiusMeters using PostGIS ST_DWithin on the
// geography column, nearest first with ties in id order.
func (r *PropertyRepo) FindNearby(ctx context.Context, q domain.DistanceQuery) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, findNearbySQL, q.Point.Lon, q.Point.Lat, q.RadiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PropertyRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Property, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		var row propertyRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, err
		}
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}
