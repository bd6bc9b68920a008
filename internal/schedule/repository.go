package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to calendar events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUpcoming returns the owner's events that are not yet finished relative
// to now, ordered by start time.
func (r *Repository) ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, title, starts_at, ends_at, location
		FROM schedule_events
		WHERE owner_id = $1 AND COALESCE(ends_at, starts_at) > $2
		ORDER BY starts_at, id`, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("schedule: list upcoming: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var endsAt pgtype.Timestamptz
		var location pgtype.Text
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartsAt, &endsAt, &location); err != nil {
			return nil, fmt.Errorf("schedule: scan event: %w", err)
		}
		if endsAt.Valid {
			e.EndsAt = endsAt.Time
		}
		if location.Valid {
			v := location.String
			e.Location = &v
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
