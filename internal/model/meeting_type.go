package model

import "time"

type MeetingType struct {
	ID              int64     `json:"id"`
	OrganizerID     int64     `json:"organizer_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	IsDefault       bool      `json:"is_default"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration returns the meeting length as a time.Duration.
func (m *MeetingType) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}
