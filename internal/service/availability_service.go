package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/availability"
	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/repository"
)

// maxResolveDays caps one resolution request; bigger ranges hammer the rule
// tables for little benefit since booking pages page by week or month.
const maxResolveDays = 92

// AvailabilityService answers slot queries. It loads the organizer's rules,
// exceptions, booked appointments and live claims, then hands everything to
// the pure resolution engine. Read-only: two identical calls with no state
// change in between return identical output.
type AvailabilityService struct {
	organizerRepo   *repository.OrganizerRepository
	ruleRepo        *repository.RuleRepository
	exceptionRepo   *repository.ExceptionRepository
	meetingTypeRepo *repository.MeetingTypeRepository
	apptRepo        *repository.AppointmentRepository
	claims          claim.Store
	logger          *zap.Logger
}

func NewAvailabilityService(
	organizerRepo *repository.OrganizerRepository,
	ruleRepo *repository.RuleRepository,
	exceptionRepo *repository.ExceptionRepository,
	meetingTypeRepo *repository.MeetingTypeRepository,
	apptRepo *repository.AppointmentRepository,
	claims claim.Store,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		organizerRepo:   organizerRepo,
		ruleRepo:        ruleRepo,
		exceptionRepo:   exceptionRepo,
		meetingTypeRepo: meetingTypeRepo,
		apptRepo:        apptRepo,
		claims:          claims,
		logger:          logger,
	}
}

// ResolveSlots computes the bookable slots for an organizer's public page.
// meetingTypeID zero selects the organizer's default meeting type.
func (s *AvailabilityService) ResolveSlots(ctx context.Context, organizerUsername string, from, to time.Time, meetingTypeID int64) ([]model.Slot, error) {
	organizer, err := s.organizerRepo.GetByUsername(ctx, organizerUsername)
	if err != nil {
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	if organizer == nil {
		return nil, NewValidationError("organizer", "unknown organizer")
	}

	if to.Before(from) {
		return nil, NewValidationError("date_range", "range end before range start")
	}
	if to.Sub(from) > maxResolveDays*24*time.Hour {
		return nil, NewValidationError("date_range", fmt.Sprintf("range exceeds %d days", maxResolveDays))
	}

	mt, err := s.meetingType(ctx, organizer.ID, meetingTypeID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleRepo.GetActiveByOrganizerID(ctx, organizer.ID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	exceptions, err := s.exceptionRepo.GetByDateRange(ctx, organizer.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load exceptions: %w", err)
	}

	// Padded by a day on both ends so appointments crossing local midnight
	// at the range boundary still mark their slots.
	loadFrom := from.AddDate(0, 0, -1)
	loadTo := to.AddDate(0, 0, 2)

	appointments, err := s.apptRepo.BookedOverlapping(ctx, organizer.ID, loadFrom, loadTo)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	claims, err := s.claims.LiveForRange(ctx, organizer.ID, loadFrom, loadTo)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}

	slots, err := availability.Resolve(availability.Input{
		RangeStart:   from,
		RangeEnd:     to,
		Duration:     mt.Duration(),
		Location:     organizer.Location(),
		Rules:        rules,
		Exceptions:   exceptions,
		Appointments: appointments,
		Claims:       claims,
	})
	if err != nil {
		return nil, NewValidationError("date_range", err.Error())
	}

	s.logger.Debug("Slots resolved",
		zap.String("organizer", organizerUsername),
		zap.Int64("meeting_type_id", mt.ID),
		zap.Int("slots", len(slots)),
	)

	return slots, nil
}

func (s *AvailabilityService) meetingType(ctx context.Context, organizerID, meetingTypeID int64) (*model.MeetingType, error) {
	if meetingTypeID == 0 {
		mt, err := s.meetingTypeRepo.GetDefault(ctx, organizerID)
		if err != nil {
			return nil, fmt.Errorf("get default meeting type: %w", err)
		}
		if mt == nil {
			return nil, NewValidationError("meeting_type_id", "organizer has no default meeting type")
		}
		return mt, nil
	}

	mt, err := s.meetingTypeRepo.GetByID(ctx, meetingTypeID)
	if err != nil {
		return nil, fmt.Errorf("get meeting type: %w", err)
	}
	if mt == nil || mt.OrganizerID != organizerID || !mt.IsActive {
		return nil, NewValidationError("meeting_type_id", "unknown meeting type for organizer")
	}
	return mt, nil
}
