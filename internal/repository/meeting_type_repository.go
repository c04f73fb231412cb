package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/model"
)

type MeetingTypeRepository struct {
	pool *pgxpool.Pool
}

func NewMeetingTypeRepository(pool *pgxpool.Pool) *MeetingTypeRepository {
	return &MeetingTypeRepository{pool: pool}
}

// Create inserts a new meeting type.
func (r *MeetingTypeRepository) Create(ctx context.Context, mt *model.MeetingType) error {
	query := `
		INSERT INTO meeting_types (organizer_id, name, duration_minutes, is_default, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		mt.OrganizerID,
		mt.Name,
		mt.DurationMinutes,
		mt.IsDefault,
		mt.IsActive,
	).Scan(&mt.ID, &mt.CreatedAt)

	if err != nil {
		return fmt.Errorf("create meeting type: %w", err)
	}

	return nil
}

// GetByID fetches a meeting type by ID.
func (r *MeetingTypeRepository) GetByID(ctx context.Context, id int64) (*model.MeetingType, error) {
	query := `
		SELECT id, organizer_id, name, duration_minutes, is_default, is_active, created_at
		FROM meeting_types
		WHERE id = $1
	`

	var mt model.MeetingType
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&mt.ID,
		&mt.OrganizerID,
		&mt.Name,
		&mt.DurationMinutes,
		&mt.IsDefault,
		&mt.IsActive,
		&mt.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get meeting type by id: %w", err)
	}

	return &mt, nil
}

// GetByOrganizerID fetches all active meeting types of an organizer.
func (r *MeetingTypeRepository) GetByOrganizerID(ctx context.Context, organizerID int64) ([]*model.MeetingType, error) {
	query := `
		SELECT id, organizer_id, name, duration_minutes, is_default, is_active, created_at
		FROM meeting_types
		WHERE organizer_id = $1 AND is_active = TRUE
		ORDER BY is_default DESC, name
	`

	rows, err := r.pool.Query(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("get meeting types: %w", err)
	}
	defer rows.Close()

	var types []*model.MeetingType
	for rows.Next() {
		var mt model.MeetingType
		err := rows.Scan(
			&mt.ID,
			&mt.OrganizerID,
			&mt.Name,
			&mt.DurationMinutes,
			&mt.IsDefault,
			&mt.IsActive,
			&mt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan meeting type: %w", err)
		}
		types = append(types, &mt)
	}

	return types, nil
}

// GetDefault fetches the organizer's default meeting type, nil if none is set.
func (r *MeetingTypeRepository) GetDefault(ctx context.Context, organizerID int64) (*model.MeetingType, error) {
	query := `
		SELECT id, organizer_id, name, duration_minutes, is_default, is_active, created_at
		FROM meeting_types
		WHERE organizer_id = $1 AND is_default = TRUE AND is_active = TRUE
		LIMIT 1
	`

	var mt model.MeetingType
	err := r.pool.QueryRow(ctx, query, organizerID).Scan(
		&mt.ID,
		&mt.OrganizerID,
		&mt.Name,
		&mt.DurationMinutes,
		&mt.IsDefault,
		&mt.IsActive,
		&mt.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get default meeting type: %w", err)
	}

	return &mt, nil
}

// Update rewrites the mutable fields of a meeting type.
func (r *MeetingTypeRepository) Update(ctx context.Context, mt *model.MeetingType) error {
	query := `
		UPDATE meeting_types
		SET name = $1, duration_minutes = $2, is_default = $3, is_active = $4
		WHERE id = $5
	`

	result, err := r.pool.Exec(ctx, query, mt.Name, mt.DurationMinutes, mt.IsDefault, mt.IsActive, mt.ID)
	if err != nil {
		return fmt.Errorf("update meeting type: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("meeting type not found")
	}

	return nil
}

// Deactivate soft-deletes a meeting type so existing appointments keep their
// reference.
func (r *MeetingTypeRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `UPDATE meeting_types SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate meeting type: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("meeting type not found")
	}

	return nil
}
