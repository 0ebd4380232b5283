package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

// DiscoveryRepo implements ports.DiscoveryRepository with pgx. One row
// per (user_id, route_id, place_id); the place snapshot is inlined as
// jsonb so discoveries stay displayable without touching the lookup
// service again.
type DiscoveryRepo struct {
	db *DB
}

// NewDiscoveryRepo creates a new DiscoveryRepo.
func NewDiscoveryRepo(db *DB) *DiscoveryRepo {
	return &DiscoveryRepo{db: db}
}

// Create inserts a discovery record. A concurrent first-time discovery
// may have inserted the same (user, route, place) already; in that case
// the existing row wins and its ID is returned on the record.
func (r *DiscoveryRepo) Create(ctx context.Context, d *domain.Discovery) error {
	placeData, err := json.Marshal(d.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO discoveries (user_id, route_id, place_id, place_data, status, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, route_id, place_id) DO NOTHING
		RETURNING id
	`, d.UserID, d.RouteID, d.PlaceID, placeData, d.Status, d.DiscoveredAt).Scan(&d.ID)

	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the create race; adopt the existing record's ID.
		return r.db.Pool.QueryRow(ctx, `
			SELECT id FROM discoveries
			WHERE user_id = $1 AND route_id = $2 AND place_id = $3
		`, d.UserID, d.RouteID, d.PlaceID).Scan(&d.ID)
	}
	return err
}

const discoveryColumns = `
	id, user_id, route_id, place_id, place_data, status,
	discovered_at, decided_at, dismiss_expires_at, summary`

// ListByRoute returns all discoveries for one route, oldest first.
func (r *DiscoveryRepo) ListByRoute(ctx context.Context, userID, routeID string) ([]domain.Discovery, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+discoveryColumns+`
		FROM discoveries
		WHERE user_id = $1 AND route_id = $2
		ORDER BY discovered_at, place_id
	`, userID, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDiscoveries(rows)
}

// ListByStatus returns all of a user's discoveries in a given stored
// status, most recently decided first. Lazy dismissal expiry is the
// caller's concern; this returns rows as persisted.
func (r *DiscoveryRepo) ListByStatus(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+discoveryColumns+`
		FROM discoveries
		WHERE user_id = $1 AND status = $2
		ORDER BY decided_at DESC NULLS LAST, discovered_at DESC
	`, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDiscoveries(rows)
}

// GetByID returns one discovery owned by the user.
func (r *DiscoveryRepo) GetByID(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+discoveryColumns+`
		FROM discoveries
		WHERE user_id = $1 AND id = $2
	`, userID, discoveryID)

	d, err := scanDiscovery(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDiscoveryNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateStatus applies a review transition.
func (r *DiscoveryRepo) UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt *time.Time, expiresAt *time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE discoveries
		SET status = $3, decided_at = $4, dismiss_expires_at = $5
		WHERE user_id = $1 AND id = $2
	`, userID, discoveryID, status, decidedAt, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDiscoveryNotFound
	}
	return nil
}

// AttachSummary stores an opaque summary payload on a discovery.
func (r *DiscoveryRepo) AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE discoveries SET summary = $3
		WHERE user_id = $1 AND id = $2
	`, userID, discoveryID, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDiscoveryNotFound
	}
	return nil
}

func scanDiscoveries(rows pgx.Rows) ([]domain.Discovery, error) {
	var out []domain.Discovery
	for rows.Next() {
		d, err := scanDiscovery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDiscovery(row pgx.Row) (*domain.Discovery, error) {
	var d domain.Discovery
	var placeData []byte
	var summary []byte

	if err := row.Scan(
		&d.ID, &d.UserID, &d.RouteID, &d.PlaceID, &placeData, &d.Status,
		&d.DiscoveredAt, &d.DecidedAt, &d.DismissExpiresAt, &summary,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(placeData, &d.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal place snapshot: %w", err)
	}
	if len(summary) > 0 {
		d.Summary = summary
	}
	return &d, nil
}
