package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to the route service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	coordinateInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CoordinateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lng": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	pathType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResolvedPath",
		Fields: graphql.Fields{
			"source":      &graphql.Field{Type: graphql.String},
			"vertices":    &graphql.Field{Type: graphql.NewList(coordinateType)},
			"distance_km": &graphql.Field{Type: graphql.Float},
		},
	})

	estimateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteEstimate",
		Fields: graphql.Fields{
			"path":           &graphql.Field{Type: pathType},
			"distance_km":    &graphql.Field{Type: graphql.Float},
			"duration_hours": &graphql.Field{Type: graphql.Float},
			"fee_estimate":   &graphql.Field{Type: graphql.Float},
			"currency":       &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.Int},
			"code":           &graphql.Field{Type: graphql.String},
			"name":           &graphql.Field{Type: graphql.String},
			"origin":         &graphql.Field{Type: coordinateType},
			"destination":    &graphql.Field{Type: coordinateType},
			"rate_per_km":    &graphql.Field{Type: graphql.Float},
			"distance_km":    &graphql.Field{Type: graphql.Float},
			"duration_hours": &graphql.Field{Type: graphql.Float},
			"fee_estimate":   &graphql.Field{Type: graphql.Float},
			"path_source":    &graphql.Field{Type: graphql.String},
			"active":         &graphql.Field{Type: graphql.Boolean},
			"cached_path": &graphql.Field{
				Type:        pathType,
				Description: "Last resolved path, without triggering a resolution",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(domain.Route)
					if !ok {
						return nil, nil
					}
					path, ok := deps.Routes.CachedPath(p.Context, r.ID)
					if !ok {
						return nil, nil
					}
					return pathMap(path), nil
				},
			},
		},
	})

	pairArgs := graphql.FieldConfigArgument{
		"origin":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(coordinateInput)},
		"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(coordinateInput)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List active dispatch routes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.ListActive(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a dispatch route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					r, err := deps.Routes.GetByID(p.Context, int64(id))
					if errors.Is(err, domain.ErrRouteNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return *r, nil
				},
			},
			"resolvePath": &graphql.Field{
				Type:        pathType,
				Description: "Resolve a path between two points",
				Args:        pairArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req, err := pairFromArgs(p.Args, deps.Bounds)
					if err != nil {
						return nil, err
					}
					path, err := deps.Routes.ResolveRoute(p.Context, req.Origin, req.Destination)
					if err != nil {
						return nil, err
					}
					return pathMap(path), nil
				},
			},
			"estimate": &graphql.Field{
				Type:        estimateType,
				Description: "Resolve a path and estimate duration and fee",
				Args: graphql.FieldConfigArgument{
					"origin":      pairArgs["origin"],
					"destination": pairArgs["destination"],
					"rate_per_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req, err := pairFromArgs(p.Args, deps.Bounds)
					if err != nil {
						return nil, err
					}
					rate, _ := p.Args["rate_per_km"].(float64)
					res, err := deps.Routes.ResolveAndEstimate(p.Context, req.Origin, req.Destination, rate)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"path":           pathMap(res.Path),
						"distance_km":    res.DistanceKm,
						"duration_hours": res.DurationHours,
						"fee_estimate":   res.FeeEstimate,
						"currency":       deps.Currency,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func pathMap(p domain.ResolvedPath) map[string]interface{} {
	vertices := make([]map[string]interface{}, 0, len(p.Vertices))
	for _, v := range p.Vertices {
		vertices = append(vertices, map[string]interface{}{"lat": v.Lat, "lng": v.Lng})
	}
	return map[string]interface{}{
		"source":      p.Source.String(),
		"vertices":    vertices,
		"distance_km": geospatial.PathDistanceKm(p.Vertices),
	}
}

func pairFromArgs(args map[string]interface{}, bounds domain.GeoBounds) (domain.RouteRequest, error) {
	o, err := coordinateArg(args, "origin")
	if err != nil {
		return domain.RouteRequest{}, err
	}
	d, err := coordinateArg(args, "destination")
	if err != nil {
		return domain.RouteRequest{}, err
	}
	req := domain.RouteRequest{Origin: o, Destination: d}
	if fields := outsideBounds(bounds, req); len(fields) > 0 {
		return domain.RouteRequest{}, fmt.Errorf("%s is outside the service area", fields[0].Field)
	}
	return req, nil
}

func coordinateArg(args map[string]interface{}, name string) (domain.Coordinate, error) {
	m, ok := args[name].(map[string]interface{})
	if !ok {
		return domain.Coordinate{}, fmt.Errorf("%s is required", name)
	}
	lat, _ := m["lat"].(float64)
	lng, _ := m["lng"].(float64)
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.Coordinate{}, fmt.Errorf("%s is not a valid coordinate", name)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
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
