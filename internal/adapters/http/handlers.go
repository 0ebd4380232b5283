package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

// headerUserID identifies the caller. Authentication happens upstream
// at the gateway; this service trusts the forwarded identity.
const (
	headerUserID          = "X-User-ID"
	headerDismissalPolicy = "X-Dismissal-Policy"
	headerDegraded        = "X-Persistence-Degraded"
)

// sessionFrom builds the per-request session from forwarded headers.
func sessionFrom(c *fiber.Ctx) (usecases.Session, bool) {
	userID := strings.TrimSpace(c.Get(headerUserID))
	if userID == "" {
		return usecases.Session{}, false
	}
	return usecases.Session{
		UserID: userID,
		Policy: domain.DismissalPolicy(c.Get(headerDismissalPolicy)),
	}, true
}

// reviewError maps domain errors onto structured HTTP responses.
func reviewError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDiscoveryNotFound):
		return errNotFound(c, "discovery not found")
	case errors.Is(err, domain.ErrDismissChoiceRequired):
		return errUnprocessable(c, "choice_required", "dismissal duration required: pass duration=thirty_days or duration=forever")
	case errors.Is(err, domain.ErrInvalidTransition):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrPlacesUnavailable):
		return errBadGateway(c, "place lookup service unavailable")
	default:
		return errInternal(c, err.Error())
	}
}

// markDegraded flags a response served from the local fallback cache.
func markDegraded(c *fiber.Ctx, degraded bool) {
	if degraded {
		c.Set(headerDegraded, "true")
	}
}

type discoverRequest struct {
	Samples  []domain.RouteSample `json:"samples"`
	Filters  []string             `json:"filters"`
	Language string               `json:"language"`
}

// DiscoverRouteHandler runs discovery for a walked route. Routes that
// were already discovered answer from storage without touching the
// lookup service.
func DiscoverRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		routeID := c.Params("id")
		if routeID == "" {
			return errBadRequest(c, "route id is required")
		}

		var req discoverRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if len(req.Samples) == 0 {
			return errBadRequest(c, "at least one route sample is required")
		}
		if len(req.Samples) > 5000 {
			return errBadRequest(c, "maximum 5000 route samples allowed")
		}

		discoveries, err := deps.Discoveries.DiscoverForRoute(c.Context(), sess, routeID, req.Samples, req.Filters, req.Language)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}

		markDegraded(c, degraded)
		return c.JSON(fiber.Map{
			"route_id":    routeID,
			"discoveries": discoveries,
			"count":       len(discoveries),
			"degraded":    degraded,
		})
	}
}

// RouteDiscoveriesHandler lists one route's discoveries, filtered by
// effective review status (default unreviewed).
func RouteDiscoveriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		routeID := c.Params("id")
		if routeID == "" {
			return errBadRequest(c, "route id is required")
		}
		status, ok := parseStatus(c.Query("status", string(domain.StatusUnreviewed)))
		if !ok {
			return errBadRequest(c, "invalid status filter")
		}

		discoveries, err := deps.Reviews.ListRouteByStatus(c.Context(), sess, routeID, status)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}

		markDegraded(c, degraded)
		return c.JSON(fiber.Map{
			"route_id":    routeID,
			"discoveries": discoveries,
			"count":       len(discoveries),
			"degraded":    degraded,
		})
	}
}

// ListDiscoveriesHandler lists the user's discoveries across routes by
// effective status. Backs the saved-places and dismissed-management
// screens.
func ListDiscoveriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		status, ok := parseStatus(c.Query("status", string(domain.StatusSaved)))
		if !ok {
			return errBadRequest(c, "invalid status filter")
		}

		discoveries, err := deps.Reviews.ListByStatus(c.Context(), sess, status)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(discoveries)
		if offset >= total {
			discoveries = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			discoveries = discoveries[offset:end]
		}

		markDegraded(c, degraded)
		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: discoveries, Pagination: pg})
	}
}

// GetDiscoveryHandler returns a single discovery by ID.
func GetDiscoveryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}
		d, err := deps.Reviews.Get(c.Context(), sess, id)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}
		markDegraded(c, degraded)
		return c.JSON(d)
	}
}

// SaveDiscoveryHandler marks a discovery as saved.
func SaveDiscoveryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}

		d, err := deps.Reviews.Save(c.Context(), sess, id)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}
		markDegraded(c, degraded)
		return c.JSON(d)
	}
}

// UnsaveDiscoveryHandler undoes a save, returning the discovery to the
// unreviewed pool.
func UnsaveDiscoveryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}

		d, err := deps.Reviews.UndoSave(c.Context(), sess, id)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}
		markDegraded(c, degraded)
		return c.JSON(d)
	}
}

type dismissRequest struct {
	Duration string `json:"duration"` // "thirty_days" | "forever" | "" (use policy)
}

// DismissDiscoveryHandler dismisses a discovery for thirty days or
// forever. Without an explicit duration the user's dismissal policy
// decides; an "ask" policy yields 422 so the client can prompt.
func DismissDiscoveryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}

		var req dismissRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body: "+err.Error())
			}
		}
		choice := domain.DismissChoice(req.Duration)
		switch choice {
		case domain.DismissUnspecified, domain.DismissThirtyDays, domain.DismissForever:
		default:
			return errBadRequest(c, "duration must be thirty_days or forever")
		}

		d, err := deps.Reviews.Dismiss(c.Context(), sess, id, choice)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}
		markDegraded(c, degraded)
		return c.JSON(d)
	}
}

// UndismissDiscoveryHandler undoes a dismissal of either kind.
func UndismissDiscoveryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}

		d, err := deps.Reviews.UndoDismiss(c.Context(), sess, id)
		degraded := errors.Is(err, domain.ErrDegradedPersistence)
		if err != nil && !degraded {
			return reviewError(c, err)
		}
		markDegraded(c, degraded)
		return c.JSON(d)
	}
}

// AttachSummaryHandler stores an opaque JSON summary on a discovery.
// The payload is produced elsewhere and never interpreted here.
func AttachSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFrom(c)
		if !ok {
			return errUnauthorized(c, "X-User-ID header is required")
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "discovery id is required")
		}
		body := c.Body()
		if len(body) == 0 {
			return errBadRequest(c, "summary body is required")
		}
		if len(body) > 64*1024 {
			return errBadRequest(c, "summary too large (max 64KiB)")
		}

		if err := deps.Reviews.AttachSummary(c.Context(), sess, id, body); err != nil {
			if errors.Is(err, domain.ErrDiscoveryNotFound) || errors.Is(err, domain.ErrDegradedPersistence) {
				return reviewErrorOrDegraded(c, err)
			}
			return errBadRequest(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

func reviewErrorOrDegraded(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrDegradedPersistence) {
		markDegraded(c, true)
		return c.SendStatus(204)
	}
	return reviewError(c, err)
}

// NearbyPlacesHandler returns places around a point without creating
// discoveries. Ad-hoc map lookups only.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lng := c.QueryFloat("lng", 0)
		radius := c.QueryFloat("radius", 150)
		typeFilter := c.Query("type")
		lang := c.Query("lang")

		point := domain.GeoPoint{Lat: lat, Lng: lng}
		if !point.Valid() {
			return errBadRequest(c, "lat and lng are required and must be valid coordinates")
		}
		if radius <= 0 || radius > 5000 {
			return errBadRequest(c, "radius must be between 1 and 5000 meters")
		}

		places, err := deps.Places.Nearby(c.Context(), point, radius, typeFilter, lang)
		if err != nil {
			return reviewError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fiber.Map{
			"places": places,
			"count":  len(places),
		})
	}
}

// GetPlaceHandler returns full place details by place ID.
func GetPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "place id is required")
		}
		lang := c.Query("lang")

		place, err := deps.Places.GetDetails(c.Context(), id, lang)
		if err != nil {
			return reviewError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(place)
	}
}

func parseStatus(raw string) (domain.ReviewStatus, bool) {
	switch domain.ReviewStatus(raw) {
	case domain.StatusUnreviewed, domain.StatusSaved,
		domain.StatusDismissedTemporary, domain.StatusDismissedForever:
		return domain.ReviewStatus(raw), true
	}
	return "", false
}
