package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/model"
)

type RuleRepository struct {
	pool *pgxpool.Pool
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

const ruleColumns = `id, organizer_id, weekday, start_minute, end_minute,
		buffer_before_minutes, buffer_after_minutes, slot_duration_minutes,
		is_active, created_at, updated_at`

// Create inserts a new recurring rule.
func (r *RuleRepository) Create(ctx context.Context, rule *model.RecurringRule) error {
	query := `
		INSERT INTO recurring_rules
			(organizer_id, weekday, start_minute, end_minute,
			 buffer_before_minutes, buffer_after_minutes, slot_duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		rule.OrganizerID,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.BufferBeforeMinutes,
		rule.BufferAfterMinutes,
		rule.SlotDurationMinutes,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurring rule: %w", err)
	}

	return nil
}

// GetByID fetches a rule by ID.
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*model.RecurringRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_rules WHERE id = $1`

	var rule model.RecurringRule
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.OrganizerID,
		&rule.Weekday,
		&rule.StartMinute,
		&rule.EndMinute,
		&rule.BufferBeforeMinutes,
		&rule.BufferAfterMinutes,
		&rule.SlotDurationMinutes,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get recurring rule by id: %w", err)
	}

	return &rule, nil
}

// GetActiveByOrganizerID fetches all active rules of an organizer, ordered by
// weekday and start.
func (r *RuleRepository) GetActiveByOrganizerID(ctx context.Context, organizerID int64) ([]model.RecurringRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM recurring_rules
		WHERE organizer_id = $1 AND is_active = TRUE
		ORDER BY weekday, start_minute
	`

	rows, err := r.pool.Query(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("get recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RecurringRule
	for rows.Next() {
		var rule model.RecurringRule
		err := rows.Scan(
			&rule.ID,
			&rule.OrganizerID,
			&rule.Weekday,
			&rule.StartMinute,
			&rule.EndMinute,
			&rule.BufferBeforeMinutes,
			&rule.BufferAfterMinutes,
			&rule.SlotDurationMinutes,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// Update rewrites the mutable fields of a rule.
func (r *RuleRepository) Update(ctx context.Context, rule *model.RecurringRule) error {
	query := `
		UPDATE recurring_rules
		SET weekday = $1, start_minute = $2, end_minute = $3,
		    buffer_before_minutes = $4, buffer_after_minutes = $5,
		    slot_duration_minutes = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.pool.Exec(
		ctx, query,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.BufferBeforeMinutes,
		rule.BufferAfterMinutes,
		rule.SlotDurationMinutes,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update recurring rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("recurring rule not found")
	}

	return nil
}

// Delete removes a rule permanently.
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recurring_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("recurring rule not found")
	}

	return nil
}
