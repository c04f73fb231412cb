package model

import "time"

// ExceptionEntry overrides an organizer's recurring rules for one calendar
// date. When both StartMinute and EndMinute are nil the whole day is blacked
// out; otherwise the override window replaces the day's recurring windows.
type ExceptionEntry struct {
	ID          int64     `json:"id"`
	OrganizerID int64     `json:"organizer_id"`
	Date        time.Time `json:"date"` // date only, midnight UTC
	StartMinute *int      `json:"start_minute"`
	EndMinute   *int      `json:"end_minute"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsBlackout reports whether the exception removes the whole day.
func (e *ExceptionEntry) IsBlackout() bool {
	return e.StartMinute == nil && e.EndMinute == nil
}

// DateKey returns the calendar date in canonical yyyy-mm-dd form, used to
// match exceptions against resolved dates.
func (e *ExceptionEntry) DateKey() string {
	return e.Date.Format("2006-01-02")
}
