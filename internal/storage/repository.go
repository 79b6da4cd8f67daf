package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTripNotFound is returned when a trip id does not exist.
var ErrTripNotFound = errors.New("trip not found")

// Trip is a saved trip record.
type Trip struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	StartsOn    time.Time `json:"starts_on"`
	DistanceKm  float64   `json:"distance_km"`
	DurationMin int       `json:"duration_min"`
	Waypoints   int       `json:"waypoints"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for trip records.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ListTrips returns trips newest-first, optionally filtered by status.
func (r *Repository) ListTrips(ctx context.Context, status string) ([]*Trip, error) {
	q := `
		SELECT id, name, starts_on, distance_km, duration_min, waypoints, status, created_at, updated_at
		FROM trips
	`
	var args []any
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY starts_on DESC, id DESC`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.StartsOn,
			&t.DistanceKm,
			&t.DurationMin,
			&t.Waypoints,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}
		trips = append(trips, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trip rows: %w", err)
	}

	return trips, nil
}

// CreateTrip inserts a trip and fills in its generated id and timestamps.
func (r *Repository) CreateTrip(ctx context.Context, t *Trip) error {
	const q = `
		INSERT INTO trips (name, starts_on, distance_km, duration_min, waypoints, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, q,
		t.Name,
		t.StartsOn,
		t.DistanceKm,
		t.DurationMin,
		t.Waypoints,
		t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting trip %q: %w", t.Name, err)
	}

	return nil
}

// DeleteTrip removes a trip by id. Returns ErrTripNotFound when no row matched.
func (r *Repository) DeleteTrip(ctx context.Context, id int64) error {
	const q = `DELETE FROM trips WHERE id = $1`

	tag, err := r.q.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deleting trip %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}

	return nil
}
