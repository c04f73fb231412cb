package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/model"
)

type ExceptionRepository struct {
	pool *pgxpool.Pool
}

func NewExceptionRepository(pool *pgxpool.Pool) *ExceptionRepository {
	return &ExceptionRepository{pool: pool}
}

// Upsert inserts the exception for its date, replacing a previous entry for
// the same organizer and date. One override per date is the model: the last
// write wins.
func (r *ExceptionRepository) Upsert(ctx context.Context, e *model.ExceptionEntry) error {
	query := `
		INSERT INTO exceptions (organizer_id, date, start_minute, end_minute, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organizer_id, date)
		DO UPDATE SET start_minute = $3, end_minute = $4, note = $5
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		e.OrganizerID,
		e.Date,
		e.StartMinute,
		e.EndMinute,
		e.Note,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("upsert exception: %w", err)
	}

	return nil
}

// GetByID fetches an exception by ID.
func (r *ExceptionRepository) GetByID(ctx context.Context, id int64) (*model.ExceptionEntry, error) {
	query := `
		SELECT id, organizer_id, date, start_minute, end_minute, note, created_at
		FROM exceptions
		WHERE id = $1
	`

	var e model.ExceptionEntry
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.OrganizerID,
		&e.Date,
		&e.StartMinute,
		&e.EndMinute,
		&e.Note,
		&e.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get exception by id: %w", err)
	}

	return &e, nil
}

// GetByDateRange fetches the organizer's exceptions for [from, to] calendar
// dates, inclusive.
func (r *ExceptionRepository) GetByDateRange(ctx context.Context, organizerID int64, from, to time.Time) ([]model.ExceptionEntry, error) {
	query := `
		SELECT id, organizer_id, date, start_minute, end_minute, note, created_at
		FROM exceptions
		WHERE organizer_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.pool.Query(ctx, query, organizerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get exceptions: %w", err)
	}
	defer rows.Close()

	var entries []model.ExceptionEntry
	for rows.Next() {
		var e model.ExceptionEntry
		err := rows.Scan(
			&e.ID,
			&e.OrganizerID,
			&e.Date,
			&e.StartMinute,
			&e.EndMinute,
			&e.Note,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Delete removes an exception, restoring the recurring rules for its date.
func (r *ExceptionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("exception not found")
	}

	return nil
}
