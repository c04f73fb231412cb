package model

import "time"

// RecurringRule is a weekly availability window for an organizer.
// Times are minutes from local midnight in the organizer's timezone,
// so the same rule lands correctly across DST transitions.
type RecurringRule struct {
	ID                  int64     `json:"id"`
	OrganizerID         int64     `json:"organizer_id"`
	Weekday             int       `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartMinute         int       `json:"start_minute"` // 0-1439
	EndMinute           int       `json:"end_minute"`   // 1-1440, start < end
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"` // organizer's default granularity
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// FitsOneSlot reports whether at least one slot of the given duration fits
// inside the window after buffers are applied.
func (r *RecurringRule) FitsOneSlot(durationMinutes int) bool {
	usable := r.EndMinute - r.BufferAfterMinutes - (r.StartMinute + r.BufferBeforeMinutes)
	return durationMinutes > 0 && usable >= durationMinutes
}
