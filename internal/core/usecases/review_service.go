package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

// ReviewService drives the review state machine for discoveries.
// Transitions are idempotent: repeating one that already happened is a
// no-op, not an error. Every status read applies lazy expiry, so an
// elapsed temporary dismissal behaves as unreviewed without a sweep.
type ReviewService struct {
	store      ports.DiscoveryStore
	events     ports.EventPublisher
	dismissTTL time.Duration
}

// NewReviewService builds a review service. dismissTTL is how long a
// temporary dismissal hides a discovery; zero or negative falls back
// to domain.TemporaryDismissalDuration.
func NewReviewService(store ports.DiscoveryStore, events ports.EventPublisher, dismissTTL time.Duration) *ReviewService {
	if dismissTTL <= 0 {
		dismissTTL = domain.TemporaryDismissalDuration
	}
	return &ReviewService{store: store, events: events, dismissTTL: dismissTTL}
}

// Get returns one discovery owned by the session user. A returned
// domain.ErrDegradedPersistence is a warning: the record alongside it
// came from the local fallback cache and is usable.
func (s *ReviewService) Get(ctx context.Context, sess Session, discoveryID string) (*domain.Discovery, error) {
	return s.store.GetDiscovery(ctx, sess.UserID, discoveryID)
}

// getForReview loads a discovery for a state transition. A degraded
// read that still produced a cached record is not a failure; the
// degraded flag is carried so the warning survives the transition.
func (s *ReviewService) getForReview(ctx context.Context, sess Session, discoveryID string) (*domain.Discovery, bool, error) {
	d, err := s.store.GetDiscovery(ctx, sess.UserID, discoveryID)
	if errors.Is(err, domain.ErrDegradedPersistence) && d != nil {
		return d, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

func degradedResult(d *domain.Discovery, degraded bool) (*domain.Discovery, error) {
	if degraded {
		return d, domain.ErrDegradedPersistence
	}
	return d, nil
}

// Save marks an unreviewed discovery as saved. Saving an already-saved
// discovery is a no-op; saving one dismissed forever is rejected.
func (s *ReviewService) Save(ctx context.Context, sess Session, discoveryID string) (*domain.Discovery, error) {
	d, degraded, err := s.getForReview(ctx, sess, discoveryID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch d.EffectiveStatus(now) {
	case domain.StatusSaved:
		return degradedResult(d, degraded)
	case domain.StatusUnreviewed:
		if d.Status == domain.StatusDismissedTemporary {
			metrics.ReviewTransitions.WithLabelValues("lazy_expiry").Inc()
		}
	default:
		return nil, fmt.Errorf("%w: cannot save a discovery in status %s", domain.ErrInvalidTransition, d.Status)
	}
	return s.transition(ctx, sess, d, domain.StatusSaved, &now, nil, "save", degraded)
}

// UndoSave returns a saved discovery to the unreviewed pool.
func (s *ReviewService) UndoSave(ctx context.Context, sess Session, discoveryID string) (*domain.Discovery, error) {
	d, degraded, err := s.getForReview(ctx, sess, discoveryID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch d.EffectiveStatus(now) {
	case domain.StatusUnreviewed:
		return degradedResult(d, degraded)
	case domain.StatusSaved:
	default:
		return nil, fmt.Errorf("%w: cannot undo a save on a discovery in status %s", domain.ErrInvalidTransition, d.Status)
	}
	return s.transition(ctx, sess, d, domain.StatusUnreviewed, nil, nil, "undo", degraded)
}

// Dismiss hides an unreviewed discovery. With no explicit choice the
// session's dismissal policy decides; a policy of "ask" (or none)
// yields domain.ErrDismissChoiceRequired so the caller can prompt.
func (s *ReviewService) Dismiss(ctx context.Context, sess Session, discoveryID string, choice domain.DismissChoice) (*domain.Discovery, error) {
	choice, err := resolveChoice(sess.Policy, choice)
	if err != nil {
		return nil, err
	}
	d, degraded, err := s.getForReview(ctx, sess, discoveryID)
	if err != nil {
		return nil, err
	}

	target := domain.StatusDismissedTemporary
	action := "dismiss_temporary"
	if choice == domain.DismissForever {
		target = domain.StatusDismissedForever
		action = "dismiss_forever"
	}

	now := time.Now().UTC()
	switch d.EffectiveStatus(now) {
	case target:
		return degradedResult(d, degraded)
	case domain.StatusUnreviewed:
		if d.Status == domain.StatusDismissedTemporary {
			metrics.ReviewTransitions.WithLabelValues("lazy_expiry").Inc()
		}
	default:
		return nil, fmt.Errorf("%w: cannot dismiss a discovery in status %s", domain.ErrInvalidTransition, d.Status)
	}

	var expiresAt *time.Time
	if target == domain.StatusDismissedTemporary {
		t := now.Add(s.dismissTTL)
		expiresAt = &t
	}
	return s.transition(ctx, sess, d, target, &now, expiresAt, action, degraded)
}

// UndoDismiss returns a dismissed discovery to the unreviewed pool.
// Works for both dismissal kinds; an already-expired temporary
// dismissal is normalized in place.
func (s *ReviewService) UndoDismiss(ctx context.Context, sess Session, discoveryID string) (*domain.Discovery, error) {
	d, degraded, err := s.getForReview(ctx, sess, discoveryID)
	if err != nil {
		return nil, err
	}
	if d.Status == domain.StatusUnreviewed {
		return degradedResult(d, degraded)
	}
	if d.Status == domain.StatusSaved {
		return nil, fmt.Errorf("%w: discovery is saved, not dismissed", domain.ErrInvalidTransition)
	}
	return s.transition(ctx, sess, d, domain.StatusUnreviewed, nil, nil, "undo", degraded)
}

// ListByStatus returns the user's discoveries whose effective status
// matches, across all routes. Unreviewed includes expired temporary
// dismissals; temporary excludes them.
func (s *ReviewService) ListByStatus(ctx context.Context, sess Session, status domain.ReviewStatus) ([]domain.Discovery, error) {
	now := time.Now().UTC()
	records, err := s.store.LoadUserDiscoveries(ctx, sess.UserID, status)
	degraded := errors.Is(err, domain.ErrDegradedPersistence)
	if err != nil && !degraded {
		return nil, err
	}

	var out []domain.Discovery
	for i := range records {
		if records[i].EffectiveStatus(now) == status {
			out = append(out, records[i])
		}
	}

	// Expired temporary dismissals are stored under their old status
	// but read back as unreviewed.
	if status == domain.StatusUnreviewed {
		expired, lerr := s.store.LoadUserDiscoveries(ctx, sess.UserID, domain.StatusDismissedTemporary)
		if lerr != nil && !errors.Is(lerr, domain.ErrDegradedPersistence) {
			return nil, lerr
		}
		degraded = degraded || errors.Is(lerr, domain.ErrDegradedPersistence)
		for i := range expired {
			if expired[i].EffectiveStatus(now) == domain.StatusUnreviewed {
				metrics.ReviewTransitions.WithLabelValues("lazy_expiry").Inc()
				out = append(out, expired[i])
			}
		}
	}

	if degraded {
		return out, domain.ErrDegradedPersistence
	}
	return out, nil
}

// ListRouteByStatus returns one route's discoveries with the given
// effective status.
func (s *ReviewService) ListRouteByStatus(ctx context.Context, sess Session, routeID string, status domain.ReviewStatus) ([]domain.Discovery, error) {
	set, err := s.store.LoadRouteDiscoveries(ctx, sess.UserID, routeID)
	degraded := errors.Is(err, domain.ErrDegradedPersistence)
	if err != nil && !degraded {
		return nil, err
	}
	out := set.ByStatus(status, time.Now().UTC())
	if degraded {
		return out, domain.ErrDegradedPersistence
	}
	return out, nil
}

// AttachSummary stores an opaque JSON summary payload on a discovery.
// The payload is not interpreted, only checked for well-formed JSON.
func (s *ReviewService) AttachSummary(ctx context.Context, sess Session, discoveryID string, summary json.RawMessage) error {
	if len(summary) == 0 || !json.Valid(summary) {
		return errors.New("summary must be a well-formed JSON document")
	}
	return s.store.AttachSummary(ctx, sess.UserID, discoveryID, summary)
}

func (s *ReviewService) transition(ctx context.Context, sess Session, d *domain.Discovery, status domain.ReviewStatus, decidedAt, expiresAt *time.Time, action string, degraded bool) (*domain.Discovery, error) {
	err := s.store.UpdateStatus(ctx, sess.UserID, d.ID, status, decidedAt, expiresAt)
	switch {
	case errors.Is(err, domain.ErrDegradedPersistence):
		degraded = true
	case err != nil:
		return nil, err
	}
	metrics.ReviewTransitions.WithLabelValues(action).Inc()

	d.Status = status
	d.DecidedAt = decidedAt
	d.DismissExpiresAt = expiresAt
	s.publishReviewed(ctx, d)

	return degradedResult(d, degraded)
}

func (s *ReviewService) publishReviewed(ctx context.Context, d *domain.Discovery) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReviewed(ctx, d); err != nil {
		slog.Warn("failed to publish review event", "discovery_id", d.ID, "error", err)
	}
}

func resolveChoice(policy domain.DismissalPolicy, choice domain.DismissChoice) (domain.DismissChoice, error) {
	if choice != domain.DismissUnspecified {
		return choice, nil
	}
	switch policy {
	case domain.PolicyAlwaysThirtyDays:
		return domain.DismissThirtyDays, nil
	case domain.PolicyAlwaysForever:
		return domain.DismissForever, nil
	default:
		return "", domain.ErrDismissChoiceRequired
	}
}
