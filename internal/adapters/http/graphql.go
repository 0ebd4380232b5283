package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

type gqlSessionKey struct{}

func gqlSession(ctx context.Context) (usecases.Session, error) {
	sess, ok := ctx.Value(gqlSessionKey{}).(usecases.Session)
	if !ok || sess.UserID == "" {
		return usecases.Session{}, errors.New("X-User-ID header is required")
	}
	return sess, nil
}

// stripDegraded drops the degraded-persistence warning; GraphQL
// responses have no header channel, so the data alone is returned.
func stripDegraded[T any](v T, err error) (T, error) {
	if errors.Is(err, domain.ErrDegradedPersistence) {
		return v, nil
	}
	return v, err
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	photoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Photo",
		Fields: graphql.Fields{
			"reference": &graphql.Field{Type: graphql.String},
			"width_px":  &graphql.Field{Type: graphql.Int},
			"height_px": &graphql.Field{Type: graphql.Int},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"place_id":         &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"primary_category": &graphql.Field{Type: graphql.String},
			"types":            &graphql.Field{Type: graphql.NewList(graphql.String)},
			"location":         &graphql.Field{Type: geoPointType},
			"rating":           &graphql.Field{Type: graphql.Float},
			"rating_count":     &graphql.Field{Type: graphql.Int},
			"price_level":      &graphql.Field{Type: graphql.Int},
			"address":          &graphql.Field{Type: graphql.String},
			"photos":           &graphql.Field{Type: graphql.NewList(photoType)},
		},
	})

	discoveryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Discovery",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"route_id":           &graphql.Field{Type: graphql.String},
			"place_id":           &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"discovered_at":      &graphql.Field{Type: graphql.DateTime},
			"decided_at":         &graphql.Field{Type: graphql.DateTime},
			"dismiss_expires_at": &graphql.Field{Type: graphql.DateTime},
			"place_data":         &graphql.Field{Type: placeType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"place": &graphql.Field{
				Type:        placeType,
				Description: "Full place details by place ID",
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lang": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					lang := p.Args["lang"].(string)
					return deps.Places.GetDetails(p.Context, id, lang)
				},
			},
			"placesNearby": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places around a point, without creating discoveries",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 150.0},
					"type":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"lang":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					point := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					if !point.Valid() {
						return nil, errors.New("lat and lng must be valid coordinates")
					}
					return deps.Places.Nearby(p.Context, point, p.Args["radius"].(float64), p.Args["type"].(string), p.Args["lang"].(string))
				},
			},
			"routeDiscoveries": &graphql.Field{
				Type:        graphql.NewList(discoveryType),
				Description: "One route's discoveries by review status",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"status":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.StatusUnreviewed)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					status, ok := parseStatus(p.Args["status"].(string))
					if !ok {
						return nil, errors.New("invalid status filter")
					}
					return stripDegraded(deps.Reviews.ListRouteByStatus(p.Context, sess, p.Args["route_id"].(string), status))
				},
			},
			"discoveries": &graphql.Field{
				Type:        graphql.NewList(discoveryType),
				Description: "The user's discoveries across routes by review status",
				Args: graphql.FieldConfigArgument{
					"status": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.StatusSaved)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					status, ok := parseStatus(p.Args["status"].(string))
					if !ok {
						return nil, errors.New("invalid status filter")
					}
					return stripDegraded(deps.Reviews.ListByStatus(p.Context, sess, status))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"saveDiscovery": &graphql.Field{
				Type: discoveryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					return stripDegraded(deps.Reviews.Save(p.Context, sess, p.Args["id"].(string)))
				},
			},
			"unsaveDiscovery": &graphql.Field{
				Type: discoveryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					return stripDegraded(deps.Reviews.UndoSave(p.Context, sess, p.Args["id"].(string)))
				},
			},
			"dismissDiscovery": &graphql.Field{
				Type: discoveryType,
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"duration": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					choice := domain.DismissChoice(p.Args["duration"].(string))
					switch choice {
					case domain.DismissUnspecified, domain.DismissThirtyDays, domain.DismissForever:
					default:
						return nil, errors.New("duration must be thirty_days or forever")
					}
					return stripDegraded(deps.Reviews.Dismiss(p.Context, sess, p.Args["id"].(string), choice))
				},
			},
			"undismissDiscovery": &graphql.Field{
				Type: discoveryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := gqlSession(p.Context)
					if err != nil {
						return nil, err
					}
					return stripDegraded(deps.Reviews.UndoDismiss(p.Context, sess, p.Args["id"].(string)))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint. The forwarded user
// identity rides into resolvers on the request context.
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		ctx := context.Context(c.Context())
		if sess, ok := sessionFrom(c); ok {
			ctx = context.WithValue(ctx, gqlSessionKey{}, sess)
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
