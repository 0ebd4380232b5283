package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/wayfound/internal/adapters/http"
	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

// ---- Mock store and resolver ----

// mockStore is a stateful in-memory DiscoveryStore so review flows can
// run end-to-end through the handlers. With degraded set, reads and
// status updates still work but carry the persistence warning, like
// the fallback store during a remote outage.
type mockStore struct {
	nextID   int
	records  map[string]domain.Discovery
	degraded bool
}

func newMockStore() *mockStore {
	return &mockStore{records: map[string]domain.Discovery{}}
}

func (m *mockStore) add(d domain.Discovery) domain.Discovery {
	m.nextID++
	if d.ID == "" {
		d.ID = fmt.Sprintf("d%d", m.nextID)
	}
	m.records[d.ID] = d
	return d
}

func (m *mockStore) LoadRouteDiscoveries(ctx context.Context, userID, routeID string) (*domain.RouteDiscoverySet, error) {
	var out []domain.Discovery
	for _, d := range m.records {
		if d.UserID == userID && d.RouteID == routeID {
			out = append(out, d)
		}
	}
	return domain.NewRouteDiscoverySet(routeID, out), nil
}

func (m *mockStore) CreateDiscovery(ctx context.Context, d *domain.Discovery) error {
	*d = m.add(*d)
	return nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt *time.Time, expiresAt *time.Time) error {
	d, ok := m.records[discoveryID]
	if !ok || d.UserID != userID {
		return domain.ErrDiscoveryNotFound
	}
	d.Status = status
	d.DecidedAt = decidedAt
	d.DismissExpiresAt = expiresAt
	m.records[discoveryID] = d
	if m.degraded {
		return domain.ErrDegradedPersistence
	}
	return nil
}

func (m *mockStore) GetDiscovery(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error) {
	d, ok := m.records[discoveryID]
	if !ok || d.UserID != userID {
		return nil, domain.ErrDiscoveryNotFound
	}
	if m.degraded {
		return &d, domain.ErrDegradedPersistence
	}
	return &d, nil
}

func (m *mockStore) LoadUserDiscoveries(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error) {
	var out []domain.Discovery
	for _, d := range m.records {
		if d.UserID == userID && d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error {
	d, ok := m.records[discoveryID]
	if !ok || d.UserID != userID {
		return domain.ErrDiscoveryNotFound
	}
	d.Summary = summary
	m.records[discoveryID] = d
	return nil
}

type mockResolver struct {
	nearbyFn  func(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error)
	detailsFn func(ctx context.Context, placeID, language string, profile ports.FieldProfile) (*domain.StandardPlace, error)
}

func (m *mockResolver) ResolveNearby(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, point, radius, typeFilter, language, profile)
	}
	return nil, nil
}

func (m *mockResolver) ResolveDetails(ctx context.Context, placeID, language string, profile ports.FieldProfile) (*domain.StandardPlace, error) {
	if m.detailsFn != nil {
		return m.detailsFn(ctx, placeID, language, profile)
	}
	return nil, domain.ErrPlacesUnavailable
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(store *mockStore, resolver *mockResolver) *handler.Dependencies {
	return &handler.Dependencies{
		Discoveries: usecases.NewDiscoveryService(store, resolver, nil, 150),
		Reviews:     usecases.NewReviewService(store, nil, 0),
		Places:      usecases.NewPlaceService(resolver, nil, "en"),
	}
}

func stdPlace(id string) domain.StandardPlace {
	return domain.StandardPlace{
		PlaceID:         id,
		Name:            "Place " + id,
		PrimaryCategory: "cafe",
		Types:           []string{"cafe"},
		Location:        domain.GeoPoint{Lat: 47.6097, Lng: -122.3331},
	}
}

func seedUnreviewed(store *mockStore, userID, routeID, placeID string) domain.Discovery {
	return store.add(domain.Discovery{
		UserID:       userID,
		RouteID:      routeID,
		PlaceID:      placeID,
		Snapshot:     stdPlace(placeID),
		Status:       domain.StatusUnreviewed,
		DiscoveredAt: time.Now().UTC().Add(-time.Hour),
	})
}

func discoverBody(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"samples":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"location":{"lat":%f,"lng":-122.3331},"timestamp":"2026-08-01T10:00:00Z"}`, 47.6+float64(i)*0.01)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

// ---- Discovery handler tests ----

func TestDiscoverRoute_RequiresUser(t *testing.T) {
	app := setupApp(makeDeps(newMockStore(), &mockResolver{}))

	req := httptest.NewRequest("POST", "/v1/routes/r1/discoveries", strings.NewReader(discoverBody(2)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestDiscoverRoute_CreatesDiscoveries(t *testing.T) {
	store := newMockStore()
	resolver := &mockResolver{
		nearbyFn: func(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
			return []domain.StandardPlace{stdPlace("pl-1")}, nil
		},
	}
	app := setupApp(makeDeps(store, resolver))

	req := httptest.NewRequest("POST", "/v1/routes/r1/discoveries", strings.NewReader(discoverBody(1)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		RouteID     string             `json:"route_id"`
		Discoveries []domain.Discovery `json:"discoveries"`
		Count       int                `json:"count"`
		Degraded    bool               `json:"degraded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 || len(result.Discoveries) != 1 {
		t.Fatalf("count = %d, discoveries = %d", result.Count, len(result.Discoveries))
	}
	if result.Discoveries[0].PlaceID != "pl-1" {
		t.Errorf("place = %q", result.Discoveries[0].PlaceID)
	}
	if result.Degraded {
		t.Error("unexpected degraded flag")
	}
	if len(store.records) != 1 {
		t.Errorf("persisted %d records, want 1", len(store.records))
	}
}

func TestDiscoverRoute_EmptySamplesRejected(t *testing.T) {
	app := setupApp(makeDeps(newMockStore(), &mockResolver{}))

	req := httptest.NewRequest("POST", "/v1/routes/r1/discoveries", strings.NewReader(`{"samples":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDiscoverRoute_ResolverDownReturnsEmpty(t *testing.T) {
	store := newMockStore()
	resolver := &mockResolver{
		nearbyFn: func(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
			return nil, domain.ErrPlacesUnavailable
		},
	}
	app := setupApp(makeDeps(store, resolver))

	req := httptest.NewRequest("POST", "/v1/routes/r1/discoveries", strings.NewReader(discoverBody(1)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 0 {
		t.Errorf("count = %d, want 0 when the lookup service is down", result.Count)
	}
	if len(store.records) != 0 {
		t.Errorf("persisted %d records, want none on resolver failure", len(store.records))
	}
}

func TestRouteDiscoveries_DefaultsToUnreviewed(t *testing.T) {
	store := newMockStore()
	seedUnreviewed(store, "u1", "r1", "pl-1")
	saved := seedUnreviewed(store, "u1", "r1", "pl-2")
	now := time.Now().UTC()
	store.UpdateStatus(context.Background(), "u1", saved.ID, domain.StatusSaved, &now, nil)

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("GET", "/v1/routes/r1/discoveries", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Discoveries []domain.Discovery `json:"discoveries"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Discoveries) != 1 || result.Discoveries[0].PlaceID != "pl-1" {
		t.Errorf("discoveries = %+v, want only the unreviewed one", result.Discoveries)
	}
}

// ---- Review handler tests ----

func TestSaveDiscovery_Success(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/save", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Status != domain.StatusSaved {
		t.Errorf("status = %q, want saved", got.Status)
	}
	if store.records[d.ID].Status != domain.StatusSaved {
		t.Errorf("stored status = %q", store.records[d.ID].Status)
	}
}

func TestSaveDiscovery_WrongUser404(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/save", nil)
	req.Header.Set("X-User-ID", "someone-else")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSaveDiscovery_DismissedForeverConflicts(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")
	now := time.Now().UTC()
	store.UpdateStatus(context.Background(), "u1", d.ID, domain.StatusDismissedForever, &now, nil)

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/save", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDismissDiscovery_AskPolicyRequiresChoice(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/dismiss", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var apiErr handler.APIError
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "choice_required" {
		t.Errorf("error code = %q", apiErr.Code)
	}
}

func TestDismissDiscovery_ExplicitDuration(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/dismiss", strings.NewReader(`{"duration":"thirty_days"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Status != domain.StatusDismissedTemporary {
		t.Errorf("status = %q, want dismissed_temporary", got.Status)
	}
	if got.DismissExpiresAt == nil {
		t.Error("temporary dismissal must carry an expiry")
	}
}

func TestDismissDiscovery_PolicyHeaderSupplied(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/dismiss", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-Dismissal-Policy", "always_forever")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Status != domain.StatusDismissedForever {
		t.Errorf("status = %q, want dismissed_forever", got.Status)
	}
	if got.DismissExpiresAt != nil {
		t.Error("forever dismissal must not carry an expiry")
	}
}

func TestDismissDiscovery_BadDuration(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/dismiss", strings.NewReader(`{"duration":"next_week"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUndismissDiscovery_RestoresUnreviewed(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")
	now := time.Now().UTC()
	exp := now.Add(domain.TemporaryDismissalDuration)
	store.UpdateStatus(context.Background(), "u1", d.ID, domain.StatusDismissedTemporary, &now, &exp)

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("DELETE", "/v1/discoveries/"+d.ID+"/dismiss", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Status != domain.StatusUnreviewed {
		t.Errorf("status = %q, want unreviewed", got.Status)
	}
}

func TestListDiscoveries_Pagination(t *testing.T) {
	store := newMockStore()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		d := seedUnreviewed(store, "u1", "r1", fmt.Sprintf("pl-%d", i))
		store.UpdateStatus(context.Background(), "u1", d.ID, domain.StatusSaved, &now, nil)
	}

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("GET", "/v1/discoveries?offset=2&limit=2", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Discovery `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("total = %d, want 5", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("page size = %d, want 2", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("offset = %d, want 2", result.Pagination.Offset)
	}
}

func TestAttachSummary_NoContent(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("PUT", "/v1/discoveries/"+d.ID+"/summary", strings.NewReader(`{"text":"a quiet corner cafe"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(store.records[d.ID].Summary) == 0 {
		t.Error("summary was not stored")
	}
}

func TestAttachSummary_InvalidJSON(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("PUT", "/v1/discoveries/"+d.ID+"/summary", strings.NewReader(`not json`))
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Places handler tests ----

func TestNearbyPlaces_Success(t *testing.T) {
	resolver := &mockResolver{
		nearbyFn: func(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
			if profile != ports.ProfileSearchBasic {
				t.Errorf("profile = %q, want search-basic", profile)
			}
			return []domain.StandardPlace{stdPlace("pl-1")}, nil
		},
	}
	app := setupApp(makeDeps(newMockStore(), resolver))

	req := httptest.NewRequest("GET", "/v1/places/nearby?lat=47.6097&lng=-122.3331&radius=300", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Places []domain.StandardPlace `json:"places"`
		Count  int                    `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Errorf("count = %d", result.Count)
	}
}

func TestNearbyPlaces_MissingCoordinates(t *testing.T) {
	app := setupApp(makeDeps(newMockStore(), &mockResolver{}))

	req := httptest.NewRequest("GET", "/v1/places/nearby?radius=300", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyPlaces_UpstreamDown(t *testing.T) {
	resolver := &mockResolver{
		nearbyFn: func(ctx context.Context, point domain.GeoPoint, radius float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
			return nil, fmt.Errorf("%w: both generations failed", domain.ErrPlacesUnavailable)
		},
	}
	app := setupApp(makeDeps(newMockStore(), resolver))

	req := httptest.NewRequest("GET", "/v1/places/nearby?lat=47.6&lng=-122.33", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestGetPlace_Details(t *testing.T) {
	resolver := &mockResolver{
		detailsFn: func(ctx context.Context, placeID, language string, profile ports.FieldProfile) (*domain.StandardPlace, error) {
			if placeID != "pl-9" {
				t.Errorf("placeID = %q", placeID)
			}
			if language != "es" {
				t.Errorf("language = %q, want es", language)
			}
			p := stdPlace(placeID)
			return &p, nil
		},
	}
	app := setupApp(makeDeps(newMockStore(), resolver))

	req := httptest.NewRequest("GET", "/v1/places/pl-9?lang=es", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.StandardPlace
	json.NewDecoder(resp.Body).Decode(&got)
	if got.PlaceID != "pl-9" {
		t.Errorf("place = %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(makeDeps(newMockStore(), &mockResolver{}))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSaveDiscovery_DegradedStoreStillSaves(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")
	store.degraded = true

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("POST", "/v1/discoveries/"+d.ID+"/save", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Persistence-Degraded") != "true" {
		t.Error("degraded response not flagged")
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != d.ID {
		t.Fatalf("body ID = %q, want %q (transition must not drop the record)", got.ID, d.ID)
	}
	if got.Status != domain.StatusSaved {
		t.Errorf("status = %q, want saved", got.Status)
	}
	if store.records[d.ID].Status != domain.StatusSaved {
		t.Errorf("stored status = %q, want saved", store.records[d.ID].Status)
	}
}

func TestGetDiscovery_DegradedStoreServesRecord(t *testing.T) {
	store := newMockStore()
	d := seedUnreviewed(store, "u1", "r1", "pl-1")
	store.degraded = true

	app := setupApp(makeDeps(store, &mockResolver{}))
	req := httptest.NewRequest("GET", "/v1/discoveries/"+d.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Persistence-Degraded") != "true" {
		t.Error("degraded response not flagged")
	}

	var got domain.Discovery
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != d.ID {
		t.Errorf("body ID = %q, want %q", got.ID, d.ID)
	}
}
