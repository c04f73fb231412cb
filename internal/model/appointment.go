package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked      AppointmentStatus = "booked"
	AppointmentStatusCanceled    AppointmentStatus = "canceled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Appointment is a committed booking. Only status=booked occupies its
// interval; canceled and rescheduled appointments free it.
type Appointment struct {
	ID            int64             `json:"id"`
	OrganizerID   int64             `json:"organizer_id"`
	MeetingTypeID int64             `json:"meeting_type_id"`
	SlotStart     time.Time         `json:"slot_start"`
	SlotEnd       time.Time         `json:"slot_end"` // half-open [start, end)
	Status        AppointmentStatus `json:"status"`
	InviteeName   string            `json:"invitee_name"`
	InviteeEmail  string            `json:"invitee_email"`
	InviteePhone  string            `json:"invitee_phone,omitempty"`
	InviteeNotes  string            `json:"invitee_notes,omitempty"`
	ManageToken   uuid.UUID         `json:"manage_token"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsBooked reports whether the appointment currently occupies its interval.
func (a *Appointment) IsBooked() bool {
	return a.Status == AppointmentStatusBooked
}

// Overlaps tests the appointment's interval against [start, end) with
// half-open semantics.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.SlotStart.Before(end) && start.Before(a.SlotEnd)
}
