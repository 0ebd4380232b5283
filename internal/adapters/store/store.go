// Package store is the persistence boundary for discovery records. It
// wraps the remote document store and falls back to the local key-value
// cache when the remote side fails, so review actions keep working on a
// flaky connection. Degraded operations return results together with
// domain.ErrDegradedPersistence; callers log it and move on.
package store

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

// cacheTTLSeconds bounds how long fallback copies are served. Queued
// writes carry no TTL: they must survive until the remote store recovers.
const cacheTTLSeconds = 7 * 24 * 3600

// FallbackStore implements ports.DiscoveryStore over a remote
// repository plus a local cache.
type FallbackStore struct {
	repo   ports.DiscoveryRepository
	cache  ports.CacheService
	isMiss func(error) bool
}

// New creates a FallbackStore. isMiss distinguishes a cache miss from a
// cache transport failure; pass valkey.IsMiss in production wiring.
// A nil cache is tolerated: every lookup then reads as a miss and
// queued writes are dropped, which keeps a cache-less deployment
// functional against a healthy remote store.
func New(repo ports.DiscoveryRepository, cache ports.CacheService, isMiss func(error) bool) *FallbackStore {
	if isMiss == nil {
		isMiss = func(error) bool { return false }
	}
	if cache == nil {
		cache = noopCache{}
		userMiss := isMiss
		isMiss = func(err error) bool { return err == errNoCache || userMiss(err) }
	}
	return &FallbackStore{repo: repo, cache: cache, isMiss: isMiss}
}

var errNoCache = errors.New("cache not configured")

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, error) { return nil, errNoCache }

func (noopCache) Set(context.Context, string, []byte, int) error { return nil }

func (noopCache) Delete(context.Context, string) error { return nil }

func routeKey(userID, routeID string) string {
	return fmt.Sprintf("discoveries:route:%s:%s", userID, routeID)
}

func idKey(userID, discoveryID string) string {
	return fmt.Sprintf("discoveries:id:%s:%s", userID, discoveryID)
}

func statusKey(userID string, status domain.ReviewStatus) string {
	return fmt.Sprintf("discoveries:user:%s:status:%s", userID, status)
}

func pendingKey(userID string) string {
	return "discoveries:pending:" + userID
}

// pendingOp is one write queued locally while the remote store was down.
type pendingOp struct {
	Kind      string              `json:"kind"` // "create" | "status" | "summary"
	Discovery *domain.Discovery   `json:"discovery,omitempty"`
	ID        string              `json:"id,omitempty"`
	Status    domain.ReviewStatus `json:"status,omitempty"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
	Summary   json.RawMessage     `json:"summary,omitempty"`
}

// LoadRouteDiscoveries returns the discovery set for one route. When
// the remote store is unreachable the last cached copy is served with a
// degraded-persistence warning; an unknown route with a healthy cache
// still degrades to an empty set rather than an error.
func (s *FallbackStore) LoadRouteDiscoveries(ctx context.Context, userID, routeID string) (*domain.RouteDiscoverySet, error) {
	s.replayPending(ctx, userID)

	records, err := s.repo.ListByRoute(ctx, userID, routeID)
	if err == nil {
		set := domain.NewRouteDiscoverySet(routeID, records)
		s.cacheRouteSet(ctx, userID, set)
		return set, nil
	}

	metrics.StoreDegradations.WithLabelValues("load_route").Inc()
	slog.Warn("remote store unavailable, reading route set from cache",
		"route_id", routeID, "error", err)

	data, cerr := s.cache.Get(ctx, routeKey(userID, routeID))
	if cerr != nil {
		if s.isMiss(cerr) {
			metrics.CacheMisses.WithLabelValues("load_route").Inc()
			return domain.NewRouteDiscoverySet(routeID, nil),
				fmt.Errorf("%w (no cached copy)", domain.ErrDegradedPersistence)
		}
		return nil, fmt.Errorf("remote store: %v; cache: %w", err, cerr)
	}

	var cached []domain.Discovery
	if uerr := json.Unmarshal(data, &cached); uerr != nil {
		return nil, fmt.Errorf("corrupt cached route set: %w", uerr)
	}
	metrics.CacheHits.WithLabelValues("load_route").Inc()
	return domain.NewRouteDiscoverySet(routeID, cached), domain.ErrDegradedPersistence
}

// CreateDiscovery persists a new discovery. On remote failure the
// record is queued locally and success is reported with a warning: the
// write completed as far as the caller is concerned.
func (s *FallbackStore) CreateDiscovery(ctx context.Context, d *domain.Discovery) error {
	err := s.repo.Create(ctx, d)
	if err == nil {
		s.cacheDiscovery(ctx, d)
		return nil
	}

	metrics.StoreDegradations.WithLabelValues("create").Inc()
	slog.Warn("remote store unavailable, queueing discovery locally",
		"route_id", d.RouteID, "place_id", d.PlaceID, "error", err)

	if d.ID == "" {
		// Remote insert would have assigned the ID; a queued record
		// gets a deterministic local one so review ops can address it.
		d.ID = fmt.Sprintf("local:%s:%s", d.RouteID, d.PlaceID)
	}
	if qerr := s.queue(ctx, d.UserID, pendingOp{Kind: "create", Discovery: d}); qerr != nil {
		return fmt.Errorf("remote store: %v; queue: %w", err, qerr)
	}
	s.appendCachedRoute(ctx, d)
	s.cacheDiscovery(ctx, d)
	return domain.ErrDegradedPersistence
}

// UpdateStatus applies a review transition, queueing it when the remote
// store is down.
func (s *FallbackStore) UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt *time.Time, expiresAt *time.Time) error {
	err := s.repo.UpdateStatus(ctx, userID, discoveryID, status, decidedAt, expiresAt)
	if err == nil || err == domain.ErrDiscoveryNotFound {
		return err
	}

	metrics.StoreDegradations.WithLabelValues("update_status").Inc()
	op := pendingOp{Kind: "status", ID: discoveryID, Status: status, DecidedAt: decidedAt, ExpiresAt: expiresAt}
	if qerr := s.queue(ctx, userID, op); qerr != nil {
		return fmt.Errorf("remote store: %v; queue: %w", err, qerr)
	}
	s.patchCachedStatus(ctx, userID, discoveryID, status, decidedAt, expiresAt)
	return domain.ErrDegradedPersistence
}

// GetDiscovery returns one discovery, from cache when degraded.
func (s *FallbackStore) GetDiscovery(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error) {
	d, err := s.repo.GetByID(ctx, userID, discoveryID)
	if err == nil {
		s.cacheDiscovery(ctx, d)
		return d, nil
	}
	if err == domain.ErrDiscoveryNotFound {
		return nil, err
	}

	metrics.StoreDegradations.WithLabelValues("get").Inc()
	data, cerr := s.cache.Get(ctx, idKey(userID, discoveryID))
	if cerr != nil {
		if s.isMiss(cerr) {
			return nil, domain.ErrDiscoveryNotFound
		}
		return nil, fmt.Errorf("remote store: %v; cache: %w", err, cerr)
	}
	var cached domain.Discovery
	if uerr := json.Unmarshal(data, &cached); uerr != nil {
		return nil, fmt.Errorf("corrupt cached discovery: %w", uerr)
	}
	return &cached, domain.ErrDegradedPersistence
}

// LoadUserDiscoveries returns a user's discoveries in a stored status.
func (s *FallbackStore) LoadUserDiscoveries(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error) {
	records, err := s.repo.ListByStatus(ctx, userID, status)
	if err == nil {
		if data, merr := json.Marshal(records); merr == nil {
			_ = s.cache.Set(ctx, statusKey(userID, status), data, cacheTTLSeconds)
		}
		return records, nil
	}

	metrics.StoreDegradations.WithLabelValues("load_user").Inc()
	data, cerr := s.cache.Get(ctx, statusKey(userID, status))
	if cerr != nil {
		if s.isMiss(cerr) {
			return nil, fmt.Errorf("%w (no cached copy)", domain.ErrDegradedPersistence)
		}
		return nil, fmt.Errorf("remote store: %v; cache: %w", err, cerr)
	}
	var cached []domain.Discovery
	if uerr := json.Unmarshal(data, &cached); uerr != nil {
		return nil, fmt.Errorf("corrupt cached list: %w", uerr)
	}
	return cached, domain.ErrDegradedPersistence
}

// AttachSummary stores an opaque summary payload on a discovery.
func (s *FallbackStore) AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error {
	err := s.repo.AttachSummary(ctx, userID, discoveryID, summary)
	if err == nil || err == domain.ErrDiscoveryNotFound {
		return err
	}

	metrics.StoreDegradations.WithLabelValues("attach_summary").Inc()
	op := pendingOp{Kind: "summary", ID: discoveryID, Summary: summary}
	if qerr := s.queue(ctx, userID, op); qerr != nil {
		return fmt.Errorf("remote store: %v; queue: %w", err, qerr)
	}
	return domain.ErrDegradedPersistence
}

// ---------------------------------------------------------------------------
// Local cache bookkeeping
// ---------------------------------------------------------------------------

func (s *FallbackStore) cacheRouteSet(ctx context.Context, userID string, set *domain.RouteDiscoverySet) {
	data, err := json.Marshal(set.Discoveries)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, routeKey(userID, set.RouteID), data, cacheTTLSeconds)
	for i := range set.Discoveries {
		s.cacheDiscovery(ctx, &set.Discoveries[i])
	}
}

func (s *FallbackStore) cacheDiscovery(ctx context.Context, d *domain.Discovery) {
	if data, err := json.Marshal(d); err == nil {
		_ = s.cache.Set(ctx, idKey(d.UserID, d.ID), data, cacheTTLSeconds)
	}
}

// appendCachedRoute adds a queued discovery to the cached route set so
// a degraded re-read still sees it (and skips the resolver).
func (s *FallbackStore) appendCachedRoute(ctx context.Context, d *domain.Discovery) {
	var cached []domain.Discovery
	if data, err := s.cache.Get(ctx, routeKey(d.UserID, d.RouteID)); err == nil {
		_ = json.Unmarshal(data, &cached)
	}
	for _, c := range cached {
		if c.PlaceID == d.PlaceID {
			return
		}
	}
	cached = append(cached, *d)
	if data, err := json.Marshal(cached); err == nil {
		_ = s.cache.Set(ctx, routeKey(d.UserID, d.RouteID), data, cacheTTLSeconds)
	}
}

func (s *FallbackStore) patchCachedStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt, expiresAt *time.Time) {
	data, err := s.cache.Get(ctx, idKey(userID, discoveryID))
	if err != nil {
		return
	}
	var d domain.Discovery
	if json.Unmarshal(data, &d) != nil {
		return
	}
	d.Status = status
	d.DecidedAt = decidedAt
	d.DismissExpiresAt = expiresAt
	s.cacheDiscovery(ctx, &d)

	// Keep the cached route set coherent with the patched record.
	var cached []domain.Discovery
	if rdata, rerr := s.cache.Get(ctx, routeKey(userID, d.RouteID)); rerr == nil {
		if json.Unmarshal(rdata, &cached) == nil {
			for i := range cached {
				if cached[i].ID == discoveryID {
					cached[i] = d
				}
			}
			if out, merr := json.Marshal(cached); merr == nil {
				_ = s.cache.Set(ctx, routeKey(userID, d.RouteID), out, cacheTTLSeconds)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Pending write queue
// ---------------------------------------------------------------------------

func (s *FallbackStore) queue(ctx context.Context, userID string, op pendingOp) error {
	var ops []pendingOp
	if data, err := s.cache.Get(ctx, pendingKey(userID)); err == nil {
		_ = json.Unmarshal(data, &ops)
	}
	ops = append(ops, op)
	data, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, pendingKey(userID), data, 0)
}

// replayPending drains queued writes back to the remote store. It runs
// opportunistically at read time, best-effort: a still-broken remote
// leaves the queue in place for the next read.
func (s *FallbackStore) replayPending(ctx context.Context, userID string) {
	data, err := s.cache.Get(ctx, pendingKey(userID))
	if err != nil {
		return
	}
	var ops []pendingOp
	if json.Unmarshal(data, &ops) != nil || len(ops) == 0 {
		_ = s.cache.Delete(ctx, pendingKey(userID))
		return
	}

	// Queued creates get fresh remote IDs; later queued ops that still
	// address the provisional local ID are remapped as replay proceeds.
	idMap := map[string]string{}
	resolve := func(id string) string {
		if real, ok := idMap[id]; ok {
			return real
		}
		return id
	}

	var remaining []pendingOp
	for _, op := range ops {
		var rerr error
		switch op.Kind {
		case "create":
			if op.Discovery != nil {
				d := *op.Discovery
				localID := d.ID
				d.ID = "" // remote assigns the real ID
				if rerr = s.repo.Create(ctx, &d); rerr == nil {
					idMap[localID] = d.ID
				}
			}
		case "status":
			rerr = s.repo.UpdateStatus(ctx, userID, resolve(op.ID), op.Status, op.DecidedAt, op.ExpiresAt)
		case "summary":
			rerr = s.repo.AttachSummary(ctx, userID, resolve(op.ID), op.Summary)
		}
		if rerr != nil && rerr != domain.ErrDiscoveryNotFound {
			remaining = append(remaining, op)
		}
	}

	if len(remaining) == 0 {
		_ = s.cache.Delete(ctx, pendingKey(userID))
		return
	}
	if out, merr := json.Marshal(remaining); merr == nil {
		_ = s.cache.Set(ctx, pendingKey(userID), out, 0)
	}
	slog.Info("replayed pending store writes", "applied", len(ops)-len(remaining), "remaining", len(remaining))
}
