package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/realtime"
	"github.com/slotwise/slotwise/internal/repository"
)

const minutesPerDay = 24 * 60

// ScheduleService manages the organizer-facing schedule configuration:
// recurring rules, one-off exceptions and meeting types. Every mutation
// broadcasts availability_updated so connected booking pages re-resolve.
type ScheduleService struct {
	organizerRepo   *repository.OrganizerRepository
	ruleRepo        *repository.RuleRepository
	exceptionRepo   *repository.ExceptionRepository
	meetingTypeRepo *repository.MeetingTypeRepository
	publisher       claim.Publisher
	logger          *zap.Logger
}

func NewScheduleService(
	organizerRepo *repository.OrganizerRepository,
	ruleRepo *repository.RuleRepository,
	exceptionRepo *repository.ExceptionRepository,
	meetingTypeRepo *repository.MeetingTypeRepository,
	publisher claim.Publisher,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		organizerRepo:   organizerRepo,
		ruleRepo:        ruleRepo,
		exceptionRepo:   exceptionRepo,
		meetingTypeRepo: meetingTypeRepo,
		publisher:       publisher,
		logger:          logger,
	}
}

// GetOrganizerByUsername resolves a public username, ErrNotFound if unknown.
func (s *ScheduleService) GetOrganizerByUsername(ctx context.Context, username string) (*model.Organizer, error) {
	organizer, err := s.organizerRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	if organizer == nil {
		return nil, ErrNotFound
	}
	return organizer, nil
}

// CreateRule validates and stores a recurring rule.
func (s *ScheduleService) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	rule.IsActive = true
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return err
	}

	s.announce(rule.OrganizerID, "recurring_rule", rule)
	s.logger.Info("Recurring rule created",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("organizer_id", rule.OrganizerID),
		zap.Int("weekday", rule.Weekday),
	)
	return nil
}

// UpdateRule validates and rewrites a rule owned by the organizer.
func (s *ScheduleService) UpdateRule(ctx context.Context, organizerID int64, rule *model.RecurringRule) error {
	existing, err := s.ruleRepo.GetByID(ctx, rule.ID)
	if err != nil {
		return err
	}
	if existing == nil || existing.OrganizerID != organizerID {
		return ErrNotFound
	}

	rule.OrganizerID = organizerID
	if err := validateRule(rule); err != nil {
		return err
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return err
	}

	s.announce(organizerID, "recurring_rule", rule)
	return nil
}

// DeleteRule removes a rule owned by the organizer.
func (s *ScheduleService) DeleteRule(ctx context.Context, organizerID, ruleID int64) error {
	existing, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if existing == nil || existing.OrganizerID != organizerID {
		return ErrNotFound
	}

	if err := s.ruleRepo.Delete(ctx, ruleID); err != nil {
		return err
	}

	s.announce(organizerID, "recurring_rule", map[string]int64{"deleted_id": ruleID})
	return nil
}

// ListRules returns the organizer's active rules.
func (s *ScheduleService) ListRules(ctx context.Context, organizerID int64) ([]model.RecurringRule, error) {
	return s.ruleRepo.GetActiveByOrganizerID(ctx, organizerID)
}

// UpsertException stores a one-off override for a date, replacing any
// previous override for the same date.
func (s *ScheduleService) UpsertException(ctx context.Context, e *model.ExceptionEntry) error {
	if err := validateException(e); err != nil {
		return err
	}

	if err := s.exceptionRepo.Upsert(ctx, e); err != nil {
		return err
	}

	s.announce(e.OrganizerID, "exception", e)
	s.logger.Info("Exception stored",
		zap.Int64("exception_id", e.ID),
		zap.Int64("organizer_id", e.OrganizerID),
		zap.String("date", e.DateKey()),
		zap.Bool("blackout", e.IsBlackout()),
	)
	return nil
}

// DeleteException removes an override, restoring recurring availability for
// its date.
func (s *ScheduleService) DeleteException(ctx context.Context, organizerID, exceptionID int64) error {
	existing, err := s.exceptionRepo.GetByID(ctx, exceptionID)
	if err != nil {
		return err
	}
	if existing == nil || existing.OrganizerID != organizerID {
		return ErrNotFound
	}

	if err := s.exceptionRepo.Delete(ctx, exceptionID); err != nil {
		return err
	}

	s.announce(organizerID, "exception", map[string]int64{"deleted_id": exceptionID})
	return nil
}

// ListExceptions returns the organizer's exceptions for a date range.
func (s *ScheduleService) ListExceptions(ctx context.Context, organizerID int64, from, to time.Time) ([]model.ExceptionEntry, error) {
	return s.exceptionRepo.GetByDateRange(ctx, organizerID, from, to)
}

// CreateMeetingType validates and stores a meeting type.
func (s *ScheduleService) CreateMeetingType(ctx context.Context, mt *model.MeetingType) error {
	if mt.Name == "" {
		return NewValidationError("name", "name is required")
	}
	if mt.DurationMinutes <= 0 || mt.DurationMinutes > minutesPerDay {
		return NewValidationError("duration_minutes", "duration must be between 1 and 1440 minutes")
	}

	mt.IsActive = true
	if err := s.meetingTypeRepo.Create(ctx, mt); err != nil {
		return err
	}

	s.announce(mt.OrganizerID, "meeting_type", mt)
	return nil
}

// DeactivateMeetingType soft-deletes a meeting type owned by the organizer.
func (s *ScheduleService) DeactivateMeetingType(ctx context.Context, organizerID, meetingTypeID int64) error {
	existing, err := s.meetingTypeRepo.GetByID(ctx, meetingTypeID)
	if err != nil {
		return err
	}
	if existing == nil || existing.OrganizerID != organizerID {
		return ErrNotFound
	}

	if err := s.meetingTypeRepo.Deactivate(ctx, meetingTypeID); err != nil {
		return err
	}

	s.announce(organizerID, "meeting_type", map[string]int64{"deleted_id": meetingTypeID})
	return nil
}

// ListMeetingTypes returns the organizer's active meeting types.
func (s *ScheduleService) ListMeetingTypes(ctx context.Context, organizerID int64) ([]*model.MeetingType, error) {
	return s.meetingTypeRepo.GetByOrganizerID(ctx, organizerID)
}

func (s *ScheduleService) announce(organizerID int64, entryType string, entry interface{}) {
	s.publisher.Broadcast(realtime.Event{
		Type: realtime.EventAvailabilityUpdated,
		Payload: realtime.AvailabilityUpdatedPayload{
			UserID:       organizerID,
			Type:         entryType,
			UpdatedEntry: entry,
			Timestamp:    time.Now(),
		},
	})
}

func validateRule(rule *model.RecurringRule) error {
	v := &ValidationError{}

	if rule.Weekday < 0 || rule.Weekday > 6 {
		v.Add("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if rule.StartMinute < 0 || rule.StartMinute >= minutesPerDay {
		v.Add("start_minute", "start must be within the day")
	}
	if rule.EndMinute <= 0 || rule.EndMinute > minutesPerDay {
		v.Add("end_minute", "end must be within the day")
	}
	if rule.StartMinute >= rule.EndMinute {
		v.Add("end_minute", "start must be before end")
	}
	if rule.BufferBeforeMinutes < 0 || rule.BufferAfterMinutes < 0 {
		v.Add("buffers", "buffers cannot be negative")
	}
	if rule.SlotDurationMinutes <= 0 {
		v.Add("slot_duration_minutes", "slot duration must be positive")
	}
	if v.HasErrors() {
		return v
	}

	if !rule.FitsOneSlot(rule.SlotDurationMinutes) {
		return NewValidationError("window", "window is too narrow for one slot after buffers")
	}
	return nil
}

func validateException(e *model.ExceptionEntry) error {
	if e.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}

	// Both bounds nil is a full-day blackout; a single nil bound is
	// malformed rather than half-open.
	if (e.StartMinute == nil) != (e.EndMinute == nil) {
		return NewValidationError("window", "override needs both start and end, or neither")
	}
	if e.StartMinute == nil {
		return nil
	}

	v := &ValidationError{}
	if *e.StartMinute < 0 || *e.StartMinute >= minutesPerDay {
		v.Add("start_minute", "start must be within the day")
	}
	if *e.EndMinute <= 0 || *e.EndMinute > minutesPerDay {
		v.Add("end_minute", "end must be within the day")
	}
	if *e.StartMinute >= *e.EndMinute {
		v.Add("end_minute", "start must be before end")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}
