package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/repository/base"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `id, organizer_id, meeting_type_id, slot_start, slot_end,
		status, invitee_name, invitee_email, invitee_phone, invitee_notes,
		manage_token, created_at, updated_at`

// CreateTx inserts an appointment inside the caller's transaction. The
// insert races against the appointments exclusion constraint; callers map
// that violation to a booking conflict.
func (r *AppointmentRepository) CreateTx(ctx context.Context, q base.Querier, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments
			(organizer_id, meeting_type_id, slot_start, slot_end, status,
			 invitee_name, invitee_email, invitee_phone, invitee_notes, manage_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		appt.OrganizerID,
		appt.MeetingTypeID,
		appt.SlotStart,
		appt.SlotEnd,
		appt.Status,
		appt.InviteeName,
		appt.InviteeEmail,
		appt.InviteePhone,
		appt.InviteeNotes,
		appt.ManageToken,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// BookedOverlapping fetches booked appointments intersecting [from, to),
// half-open semantics.
func (r *AppointmentRepository) BookedOverlapping(ctx context.Context, organizerID int64, from, to time.Time) ([]model.Appointment, error) {
	return r.bookedOverlapping(ctx, r.pool, organizerID, from, to, false)
}

// BookedOverlappingTx is the in-transaction variant used by the booking
// conflict re-check; it locks the matching rows for the transaction.
func (r *AppointmentRepository) BookedOverlappingTx(ctx context.Context, q base.Querier, organizerID int64, from, to time.Time) ([]model.Appointment, error) {
	return r.bookedOverlapping(ctx, q, organizerID, from, to, true)
}

func (r *AppointmentRepository) bookedOverlapping(ctx context.Context, q base.Querier, organizerID int64, from, to time.Time, forUpdate bool) ([]model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE organizer_id = $1
		  AND status = 'booked'
		  AND slot_start < $3
		  AND slot_end > $2
		ORDER BY slot_start
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, organizerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get booked appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}

	return appts, nil
}

// GetByID fetches an appointment by ID.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// GetByManageToken fetches an appointment by its cancellation/reschedule
// token.
func (r *AppointmentRepository) GetByManageToken(ctx context.Context, token uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE manage_token = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by token: %w", err)
	}

	return appt, nil
}

// UpdateStatus updates an appointment's status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	return r.updateStatus(ctx, r.pool, id, status)
}

// UpdateStatusTx is the in-transaction variant.
func (r *AppointmentRepository) UpdateStatusTx(ctx context.Context, q base.Querier, id int64, status model.AppointmentStatus) error {
	return r.updateStatus(ctx, q, id, status)
}

func (r *AppointmentRepository) updateStatus(ctx context.Context, q base.Querier, id int64, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.OrganizerID,
		&appt.MeetingTypeID,
		&appt.SlotStart,
		&appt.SlotEnd,
		&appt.Status,
		&appt.InviteeName,
		&appt.InviteeEmail,
		&appt.InviteePhone,
		&appt.InviteeNotes,
		&appt.ManageToken,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &appt, nil
}
