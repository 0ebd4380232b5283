package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

// fakeStore is an in-memory DiscoveryStore for state-machine tests.
// With degraded set it behaves like the fallback store during a remote
// outage: reads and writes still work but carry the persistence
// warning.
type fakeStore struct {
	records  map[string]*domain.Discovery
	updates  int
	degraded bool
}

func newFakeStore(ds ...domain.Discovery) *fakeStore {
	s := &fakeStore{records: map[string]*domain.Discovery{}}
	for i := range ds {
		d := ds[i]
		s.records[d.ID] = &d
	}
	return s
}

func (s *fakeStore) LoadRouteDiscoveries(ctx context.Context, userID, routeID string) (*domain.RouteDiscoverySet, error) {
	var out []domain.Discovery
	for _, d := range s.records {
		if d.UserID == userID && d.RouteID == routeID {
			out = append(out, *d)
		}
	}
	return domain.NewRouteDiscoverySet(routeID, out), nil
}

func (s *fakeStore) CreateDiscovery(ctx context.Context, d *domain.Discovery) error {
	if d.ID == "" {
		d.ID = "id-" + d.PlaceID
	}
	cp := *d
	s.records[d.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt, expiresAt *time.Time) error {
	d, ok := s.records[discoveryID]
	if !ok || d.UserID != userID {
		return domain.ErrDiscoveryNotFound
	}
	s.updates++
	d.Status = status
	d.DecidedAt = decidedAt
	d.DismissExpiresAt = expiresAt
	if s.degraded {
		return domain.ErrDegradedPersistence
	}
	return nil
}

func (s *fakeStore) GetDiscovery(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error) {
	d, ok := s.records[discoveryID]
	if !ok || d.UserID != userID {
		return nil, domain.ErrDiscoveryNotFound
	}
	cp := *d
	if s.degraded {
		return &cp, domain.ErrDegradedPersistence
	}
	return &cp, nil
}

func (s *fakeStore) LoadUserDiscoveries(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error) {
	var out []domain.Discovery
	for _, d := range s.records {
		if d.UserID == userID && d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeStore) AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error {
	d, ok := s.records[discoveryID]
	if !ok || d.UserID != userID {
		return domain.ErrDiscoveryNotFound
	}
	d.Summary = append([]byte(nil), summary...)
	return nil
}

func unreviewedDiscovery(id string) domain.Discovery {
	return domain.Discovery{
		ID:           id,
		UserID:       "u1",
		RouteID:      "r1",
		PlaceID:      "place-" + id,
		Status:       domain.StatusUnreviewed,
		DiscoveredAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestSaveAndUndoKeepsSingleRecord(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	events := &mockPublisher{}
	svc := usecases.NewReviewService(store, events, 0)
	ctx := context.Background()

	d, err := svc.Save(ctx, sess(), "d1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Status != domain.StatusSaved || d.DecidedAt == nil {
		t.Errorf("after save: status %s, decidedAt %v", d.Status, d.DecidedAt)
	}

	if _, err := svc.UndoSave(ctx, sess(), "d1"); err != nil {
		t.Fatalf("UndoSave: %v", err)
	}
	if _, err := svc.Save(ctx, sess(), "d1"); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	// Save, undo, save again: still exactly one record, saved.
	if len(store.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.records))
	}
	if store.records["d1"].Status != domain.StatusSaved {
		t.Errorf("final status %s, want saved", store.records["d1"].Status)
	}
	if events.reviewed != 3 {
		t.Errorf("published %d review events, want 3", events.reviewed)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	svc := usecases.NewReviewService(store, nil, 0)
	ctx := context.Background()

	if _, err := svc.Save(ctx, sess(), "d1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	updates := store.updates
	if _, err := svc.Save(ctx, sess(), "d1"); err != nil {
		t.Fatalf("repeated Save: %v", err)
	}
	if store.updates != updates {
		t.Errorf("repeated save wrote to the store (%d -> %d updates)", updates, store.updates)
	}
}

func TestSaveRejectedFromDismissedForever(t *testing.T) {
	d := unreviewedDiscovery("d1")
	d.Status = domain.StatusDismissedForever
	store := newFakeStore(d)
	svc := usecases.NewReviewService(store, nil, 0)

	if _, err := svc.Save(context.Background(), sess(), "d1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDismissAskPolicyRequiresChoice(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	svc := usecases.NewReviewService(store, nil, 0)

	_, err := svc.Dismiss(context.Background(), sess(), "d1", domain.DismissUnspecified)
	if !errors.Is(err, domain.ErrDismissChoiceRequired) {
		t.Fatalf("expected ErrDismissChoiceRequired, got %v", err)
	}
	if store.records["d1"].Status != domain.StatusUnreviewed {
		t.Error("failed dismiss must not change state")
	}
}

func TestDismissPolicyDefaults(t *testing.T) {
	tests := []struct {
		policy domain.DismissalPolicy
		want   domain.ReviewStatus
	}{
		{domain.PolicyAlwaysThirtyDays, domain.StatusDismissedTemporary},
		{domain.PolicyAlwaysForever, domain.StatusDismissedForever},
	}
	for _, tt := range tests {
		store := newFakeStore(unreviewedDiscovery("d1"))
		svc := usecases.NewReviewService(store, nil, 0)
		s := usecases.Session{UserID: "u1", Policy: tt.policy}

		d, err := svc.Dismiss(context.Background(), s, "d1", domain.DismissUnspecified)
		if err != nil {
			t.Fatalf("Dismiss with policy %s: %v", tt.policy, err)
		}
		if d.Status != tt.want {
			t.Errorf("policy %s yielded %s, want %s", tt.policy, d.Status, tt.want)
		}
	}
}

func TestDismissThirtyDaysSetsDeadline(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	svc := usecases.NewReviewService(store, nil, 0)

	before := time.Now().UTC()
	d, err := svc.Dismiss(context.Background(), sess(), "d1", domain.DismissThirtyDays)
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if d.Status != domain.StatusDismissedTemporary {
		t.Fatalf("status %s, want dismissed_temporary", d.Status)
	}
	if d.DismissExpiresAt == nil {
		t.Fatal("temporary dismissal has no deadline")
	}
	want := before.Add(domain.TemporaryDismissalDuration)
	if diff := d.DismissExpiresAt.Sub(want); diff < 0 || diff > time.Minute {
		t.Errorf("deadline %v not ~30 days out", d.DismissExpiresAt)
	}

	// Forever dismissals carry no deadline.
	store2 := newFakeStore(unreviewedDiscovery("d2"))
	svc2 := usecases.NewReviewService(store2, nil, 0)
	d2, err := svc2.Dismiss(context.Background(), sess(), "d2", domain.DismissForever)
	if err != nil {
		t.Fatalf("Dismiss forever: %v", err)
	}
	if d2.Status != domain.StatusDismissedForever || d2.DismissExpiresAt != nil {
		t.Errorf("forever dismissal: status %s, deadline %v", d2.Status, d2.DismissExpiresAt)
	}
}

func TestUndoDismissRestoresUnreviewed(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	svc := usecases.NewReviewService(store, nil, 0)
	ctx := context.Background()

	if _, err := svc.Dismiss(ctx, sess(), "d1", domain.DismissForever); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	d, err := svc.UndoDismiss(ctx, sess(), "d1")
	if err != nil {
		t.Fatalf("UndoDismiss: %v", err)
	}
	if d.Status != domain.StatusUnreviewed || d.DecidedAt != nil || d.DismissExpiresAt != nil {
		t.Errorf("after undo: %+v", d)
	}
}

func TestSaveAfterExpiredTemporaryDismissal(t *testing.T) {
	d := unreviewedDiscovery("d1")
	decided := time.Now().UTC().Add(-31 * 24 * time.Hour)
	expires := decided.Add(domain.TemporaryDismissalDuration)
	d.Status = domain.StatusDismissedTemporary
	d.DecidedAt = &decided
	d.DismissExpiresAt = &expires

	store := newFakeStore(d)
	svc := usecases.NewReviewService(store, nil, 0)

	got, err := svc.Save(context.Background(), sess(), "d1")
	if err != nil {
		t.Fatalf("Save after expiry: %v", err)
	}
	if got.Status != domain.StatusSaved {
		t.Errorf("status %s, want saved", got.Status)
	}
}

func TestDismissRejectedFromSaved(t *testing.T) {
	d := unreviewedDiscovery("d1")
	d.Status = domain.StatusSaved
	store := newFakeStore(d)
	svc := usecases.NewReviewService(store, nil, 0)

	_, err := svc.Dismiss(context.Background(), sess(), "d1", domain.DismissForever)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestListByStatusUnreviewedIncludesExpiredDismissals(t *testing.T) {
	plain := unreviewedDiscovery("d1")

	expiredD := unreviewedDiscovery("d2")
	decided := time.Now().UTC().Add(-31 * 24 * time.Hour)
	expires := decided.Add(domain.TemporaryDismissalDuration)
	expiredD.Status = domain.StatusDismissedTemporary
	expiredD.DecidedAt = &decided
	expiredD.DismissExpiresAt = &expires

	activeD := unreviewedDiscovery("d3")
	recent := time.Now().UTC().Add(-24 * time.Hour)
	activeExp := recent.Add(domain.TemporaryDismissalDuration)
	activeD.Status = domain.StatusDismissedTemporary
	activeD.DecidedAt = &recent
	activeD.DismissExpiresAt = &activeExp

	store := newFakeStore(plain, expiredD, activeD)
	svc := usecases.NewReviewService(store, nil, 0)

	got, err := svc.ListByStatus(context.Background(), sess(), domain.StatusUnreviewed)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unreviewed = %d records, want 2 (plain + expired)", len(got))
	}

	dismissed, err := svc.ListByStatus(context.Background(), sess(), domain.StatusDismissedTemporary)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(dismissed) != 1 || dismissed[0].ID != "d3" {
		t.Errorf("dismissed_temporary = %v, want only the active dismissal", dismissed)
	}
}

func TestGetUnknownDiscovery(t *testing.T) {
	svc := usecases.NewReviewService(newFakeStore(), nil, 0)
	if _, err := svc.Get(context.Background(), sess(), "nope"); !errors.Is(err, domain.ErrDiscoveryNotFound) {
		t.Fatalf("expected ErrDiscoveryNotFound, got %v", err)
	}
}

func TestAttachSummary(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	svc := usecases.NewReviewService(store, nil, 0)
	ctx := context.Background()

	payload := json.RawMessage(`{"headline":"Quiet corner cafe","rating_blurb":"locals love it"}`)
	if err := svc.AttachSummary(ctx, sess(), "d1", payload); err != nil {
		t.Fatalf("AttachSummary: %v", err)
	}
	if string(store.records["d1"].Summary) != string(payload) {
		t.Error("summary not stored verbatim")
	}

	if err := svc.AttachSummary(ctx, sess(), "d1", json.RawMessage(`{not json`)); err == nil {
		t.Error("malformed summary accepted")
	}
	if err := svc.AttachSummary(ctx, sess(), "d1", nil); err == nil {
		t.Error("empty summary accepted")
	}
}

func TestSaveDuringDegradedReadStillTransitions(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	store.degraded = true
	svc := usecases.NewReviewService(store, nil, 0)

	d, err := svc.Save(context.Background(), sess(), "d1")
	if !errors.Is(err, domain.ErrDegradedPersistence) {
		t.Fatalf("Save error = %v, want degraded persistence warning", err)
	}
	if d == nil {
		t.Fatal("Save returned no discovery alongside the warning")
	}
	if d.Status != domain.StatusSaved || d.DecidedAt == nil {
		t.Errorf("after save: status %s, decidedAt %v", d.Status, d.DecidedAt)
	}
	if store.updates != 1 {
		t.Errorf("status updates = %d, want 1", store.updates)
	}
}

func TestDismissDuringDegradedReadStillTransitions(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	store.degraded = true
	svc := usecases.NewReviewService(store, nil, 0)

	d, err := svc.Dismiss(context.Background(), sess(), "d1", domain.DismissForever)
	if !errors.Is(err, domain.ErrDegradedPersistence) {
		t.Fatalf("Dismiss error = %v, want degraded persistence warning", err)
	}
	if d == nil || d.Status != domain.StatusDismissedForever {
		t.Fatalf("dismissal did not apply: %+v", d)
	}
}

func TestDegradedReadNoOpKeepsWarning(t *testing.T) {
	saved := unreviewedDiscovery("d1")
	saved.Status = domain.StatusSaved
	store := newFakeStore(saved)
	store.degraded = true
	svc := usecases.NewReviewService(store, nil, 0)

	d, err := svc.Save(context.Background(), sess(), "d1")
	if !errors.Is(err, domain.ErrDegradedPersistence) {
		t.Fatalf("Save error = %v, want degraded persistence warning", err)
	}
	if d == nil || d.Status != domain.StatusSaved {
		t.Fatalf("no-op save lost the record: %+v", d)
	}
	if store.updates != 0 {
		t.Errorf("status updates = %d, want 0 for a no-op", store.updates)
	}
}

func TestDismissHonorsConfiguredDuration(t *testing.T) {
	store := newFakeStore(unreviewedDiscovery("d1"))
	ttl := 7 * 24 * time.Hour
	svc := usecases.NewReviewService(store, nil, ttl)

	before := time.Now().UTC()
	d, err := svc.Dismiss(context.Background(), sess(), "d1", domain.DismissThirtyDays)
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if d.DismissExpiresAt == nil {
		t.Fatal("temporary dismissal has no expiry")
	}
	want := before.Add(ttl)
	if d.DismissExpiresAt.Before(want) || d.DismissExpiresAt.After(want.Add(time.Minute)) {
		t.Errorf("expiry %v, want about %v", d.DismissExpiresAt, want)
	}
}
