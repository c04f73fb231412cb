package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/realtime"
	"github.com/slotwise/slotwise/internal/repository"
	"github.com/slotwise/slotwise/internal/repository/base"
)

// BookingService converts confirmed claims into durable appointments. The
// conversion runs inside one transaction with a conflict re-check against
// booked appointments; the claim only narrows the race window, the
// transaction is what actually prevents double booking.
type BookingService struct {
	pool            *pgxpool.Pool
	meetingTypeRepo *repository.MeetingTypeRepository
	apptRepo        *repository.AppointmentRepository
	coordinator     *claim.Coordinator
	publisher       claim.Publisher
	logger          *zap.Logger
}

func NewBookingService(
	pool *pgxpool.Pool,
	meetingTypeRepo *repository.MeetingTypeRepository,
	apptRepo *repository.AppointmentRepository,
	coordinator *claim.Coordinator,
	publisher claim.Publisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		pool:            pool,
		meetingTypeRepo: meetingTypeRepo,
		apptRepo:        apptRepo,
		coordinator:     coordinator,
		publisher:       publisher,
		logger:          logger,
	}
}

// BookingRequest is a finalized booking submission carrying the claim handle
// issued by the coordinator.
type BookingRequest struct {
	MeetingTypeID int64
	SlotStart     time.Time
	ClaimHandle   uuid.UUID
	InviteeName   string
	InviteeEmail  string
	InviteePhone  string
	InviteeNotes  string
}

// ConvertClaim books the slot. Returns ErrConflict when another booking
// already occupies the interval, claim.ErrExpired when the handle outlived
// its TTL, and a ValidationError for unknown meeting types or mismatched
// handles. Either failure invalidates the claim.
func (s *BookingService) ConvertClaim(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	mt, err := s.meetingTypeRepo.GetByID(ctx, req.MeetingTypeID)
	if err != nil {
		return nil, fmt.Errorf("get meeting type: %w", err)
	}
	if mt == nil || !mt.IsActive {
		return nil, NewValidationError("meeting_type_id", "unknown or inactive meeting type")
	}

	slotEnd := req.SlotStart.Add(mt.Duration())

	cl, err := s.coordinator.Validate(ctx, req.ClaimHandle, mt.OrganizerID, req.SlotStart, slotEnd)
	if err != nil {
		if errors.Is(err, claim.ErrExpired) {
			return nil, err
		}
		if errors.Is(err, claim.ErrHandleMismatch) {
			return nil, NewValidationError("claim_handle", "claim does not cover the requested slot")
		}
		return nil, fmt.Errorf("validate claim: %w", err)
	}
	// cl == nil means the handle is unknown (coordinator restart); the
	// transactional check below is the sole guard in that case.

	appt := &model.Appointment{
		OrganizerID:   mt.OrganizerID,
		MeetingTypeID: mt.ID,
		SlotStart:     req.SlotStart,
		SlotEnd:       slotEnd,
		Status:        model.AppointmentStatusBooked,
		InviteeName:   req.InviteeName,
		InviteeEmail:  req.InviteeEmail,
		InviteePhone:  req.InviteePhone,
		InviteeNotes:  req.InviteeNotes,
		ManageToken:   uuid.New(),
	}

	if err := s.insertBooked(ctx, appt); err != nil {
		if errors.Is(err, ErrConflict) {
			// The claim no longer reflects reality; drop it so the interval
			// clears as soon as clients re-resolve.
			s.releaseQuietly(ctx, req.ClaimHandle)
			s.logger.Warn("Booking conflict at commit",
				zap.Int64("organizer_id", mt.OrganizerID),
				zap.Time("slot_start", req.SlotStart),
			)
		}
		return nil, err
	}

	s.releaseQuietly(ctx, req.ClaimHandle)
	if cl != nil {
		s.logger.Info("Claim converted to booking",
			zap.String("handle", cl.Handle.String()),
			zap.Int64("appointment_id", appt.ID),
		)
	}

	s.publisher.Broadcast(realtime.Event{
		Type: realtime.EventBookingCreated,
		Payload: realtime.BookingCreatedPayload{
			AppointmentID: appt.ID,
			OrganizerID:   appt.OrganizerID,
			MeetingTypeID: appt.MeetingTypeID,
			SlotStart:     appt.SlotStart,
			SlotEnd:       appt.SlotEnd,
			Status:        string(appt.Status),
			Invitee:       appt.InviteeName,
		},
	})

	s.logger.Info("Booking created",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("organizer_id", appt.OrganizerID),
		zap.Time("slot_start", appt.SlotStart),
		zap.String("invitee_email", appt.InviteeEmail),
	)

	return appt, nil
}

// insertBooked runs the conflict re-check and insert in one transaction.
// The exclusion constraint on appointments backs the explicit check: two
// transactions that both saw an empty interval still cannot both commit.
func (s *BookingService) insertBooked(ctx context.Context, appt *model.Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := s.apptRepo.BookedOverlappingTx(ctx, tx, appt.OrganizerID, appt.SlotStart, appt.SlotEnd)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if len(existing) > 0 {
		return ErrConflict
	}

	if err := s.apptRepo.CreateTx(ctx, tx, appt); err != nil {
		if base.IsExclusionViolation(err) {
			return ErrConflict
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if base.IsExclusionViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// CancelBooking cancels an appointment by its manage token, freeing the
// interval, and announces the update.
func (s *BookingService) CancelBooking(ctx context.Context, manageToken uuid.UUID) (*model.Appointment, error) {
	appt, err := s.apptRepo.GetByManageToken(ctx, manageToken)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	if !appt.IsBooked() {
		return nil, NewValidationError("status", "appointment is not active")
	}

	if err := s.apptRepo.UpdateStatus(ctx, appt.ID, model.AppointmentStatusCanceled); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	appt.Status = model.AppointmentStatusCanceled

	s.publisher.Broadcast(realtime.Event{
		Type: realtime.EventBookingUpdated,
		Payload: realtime.BookingUpdatedPayload{
			AppointmentID: appt.ID,
			UpdatedFields: map[string]interface{}{"status": model.AppointmentStatusCanceled},
			Timestamp:     time.Now(),
		},
	})

	s.logger.Info("Booking canceled",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("organizer_id", appt.OrganizerID),
	)

	return appt, nil
}

// RescheduleBooking moves an appointment to a new slot: the old entry is
// marked rescheduled and a fresh booked appointment takes its place, both in
// one transaction so the swap cannot half-apply.
func (s *BookingService) RescheduleBooking(ctx context.Context, manageToken uuid.UUID, newStart time.Time) (*model.Appointment, error) {
	old, err := s.apptRepo.GetByManageToken(ctx, manageToken)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if old == nil {
		return nil, ErrNotFound
	}
	if !old.IsBooked() {
		return nil, NewValidationError("status", "appointment is not active")
	}

	duration := old.SlotEnd.Sub(old.SlotStart)
	replacement := &model.Appointment{
		OrganizerID:   old.OrganizerID,
		MeetingTypeID: old.MeetingTypeID,
		SlotStart:     newStart,
		SlotEnd:       newStart.Add(duration),
		Status:        model.AppointmentStatusBooked,
		InviteeName:   old.InviteeName,
		InviteeEmail:  old.InviteeEmail,
		InviteePhone:  old.InviteePhone,
		InviteeNotes:  old.InviteeNotes,
		ManageToken:   uuid.New(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Freeing the old interval first lets a move within the old slot's
	// bounds pass the overlap check.
	if err := s.apptRepo.UpdateStatusTx(ctx, tx, old.ID, model.AppointmentStatusRescheduled); err != nil {
		return nil, err
	}

	existing, err := s.apptRepo.BookedOverlappingTx(ctx, tx, replacement.OrganizerID, replacement.SlotStart, replacement.SlotEnd)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrConflict
	}

	if err := s.apptRepo.CreateTx(ctx, tx, replacement); err != nil {
		if base.IsExclusionViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if base.IsExclusionViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.publisher.Broadcast(realtime.Event{
		Type: realtime.EventBookingUpdated,
		Payload: realtime.BookingUpdatedPayload{
			AppointmentID: old.ID,
			UpdatedFields: map[string]interface{}{
				"status":         model.AppointmentStatusRescheduled,
				"rescheduled_to": replacement.ID,
				"new_slot_start": replacement.SlotStart,
			},
			Timestamp: time.Now(),
		},
	})

	s.logger.Info("Booking rescheduled",
		zap.Int64("old_appointment_id", old.ID),
		zap.Int64("new_appointment_id", replacement.ID),
		zap.Time("new_slot_start", replacement.SlotStart),
	)

	return replacement, nil
}

func (s *BookingService) releaseQuietly(ctx context.Context, handle uuid.UUID) {
	if handle == uuid.Nil {
		return
	}
	if err := s.coordinator.ReleaseClaim(ctx, handle); err != nil {
		s.logger.Warn("Failed to release claim", zap.String("handle", handle.String()), zap.Error(err))
	}
}
