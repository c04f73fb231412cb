package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/model"
)

type OrganizerRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizerRepository(pool *pgxpool.Pool) *OrganizerRepository {
	return &OrganizerRepository{pool: pool}
}

// Create inserts a new organizer.
func (r *OrganizerRepository) Create(ctx context.Context, organizer *model.Organizer) error {
	query := `
		INSERT INTO organizers (username, display_name, timezone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		organizer.Username,
		organizer.DisplayName,
		organizer.Timezone,
	).Scan(&organizer.ID, &organizer.CreatedAt)

	if err != nil {
		return fmt.Errorf("create organizer: %w", err)
	}

	return nil
}

// GetByID fetches an organizer by ID.
func (r *OrganizerRepository) GetByID(ctx context.Context, id int64) (*model.Organizer, error) {
	query := `
		SELECT id, username, display_name, timezone, created_at
		FROM organizers
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches an organizer by public username.
func (r *OrganizerRepository) GetByUsername(ctx context.Context, username string) (*model.Organizer, error) {
	query := `
		SELECT id, username, display_name, timezone, created_at
		FROM organizers
		WHERE username = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *OrganizerRepository) scanOne(row pgx.Row) (*model.Organizer, error) {
	var organizer model.Organizer
	err := row.Scan(
		&organizer.ID,
		&organizer.Username,
		&organizer.DisplayName,
		&organizer.Timezone,
		&organizer.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get organizer: %w", err)
	}

	return &organizer, nil
}
