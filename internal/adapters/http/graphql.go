package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// gqlProperty flattens a property for the GraphQL resolvers. Geometries are
// carried as GeoJSON text.
func gqlProperty(p *domain.Property) (map[string]interface{}, error) {
	r, err := toPropertyResponse(p)
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{
		"id":           r.ID,
		"longitude":    r.Longitude,
		"latitude":     r.Latitude,
		"image_bounds": r.ImageBounds,
		"image_url":    r.ImageURL,
		"parcel_geo":   nil,
		"building_geo": nil,
	}
	if string(r.ParcelGeo) != "null" {
		m["parcel_geo"] = string(r.ParcelGeo)
	}
	if string(r.BuildingGeo) != "null" {
		m["building_geo"] = string(r.BuildingGeo)
	}
	if r.UpdatedAt != nil {
		m["updated_at"] = r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return m, nil
}

func gqlProperties(props []domain.Property) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(props))
	for i := range props {
		m, err := gqlProperty(&props[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	propertyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Property",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"longitude":    &graphql.Field{Type: graphql.Float},
			"latitude":     &graphql.Field{Type: graphql.Float},
			"parcel_geo":   &graphql.Field{Type: graphql.String, Description: "Parcel geometry as GeoJSON"},
			"building_geo": &graphql.Field{Type: graphql.String, Description: "Building geometry as GeoJSON"},
			"image_bounds": &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"image_url":    &graphql.Field{Type: graphql.String},
			"updated_at":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"properties": &graphql.Field{
				Type:        graphql.NewList(propertyType),
				Description: "List stored properties ordered by id",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					props, _, err := deps.Properties.List(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					return gqlProperties(props)
				},
			},
			"property": &graphql.Field{
				Type:        propertyType,
				Description: "Get a property by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					prop, err := deps.Properties.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return gqlProperty(prop)
				},
			},
			"propertiesNear": &graphql.Field{
				Type:        graphql.NewList(propertyType),
				Description: "Properties within radius meters of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := domain.DistanceQuery{
						Point:        domain.GeoPoint{Lon: p.Args["lon"].(float64), Lat: p.Args["lat"].(float64)},
						RadiusMeters: p.Args["radius"].(float64),
					}
					ids, err := deps.Properties.FindNear(p.Context, q)
					if err != nil {
						return nil, err
					}
					props, err := deps.Properties.GetByIDs(p.Context, ids)
					if err != nil {
						return nil, err
					}
					return gqlProperties(orderByIDs(props, ids))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// orderByIDs reorders props to follow ids. Properties missing from props
// (deleted after the search ran) are dropped.
func orderByIDs(props []domain.Property, ids []string) []domain.Property {
	byID := make(map[string]int, len(props))
	for i := range props {
		byID[props[i].ID] = i
	}
	out := make([]domain.Property, 0, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, props[i])
		}
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
