package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// Client -> coordinator.
	EventClaimRequested EventType = "claim_requested"
	EventClaimReleased  EventType = "claim_released"

	// Coordinator -> clients.
	EventClaimGranted        EventType = "claim_granted"
	EventClaimDenied         EventType = "claim_denied"
	EventBookingCreated      EventType = "booking_created"
	EventBookingUpdated      EventType = "booking_updated"
	EventAvailabilityUpdated EventType = "availability_updated"
)

// Event is the wire envelope for every channel message, in both directions.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClaimRequestedPayload is sent by a client to claim a slot interval.
type ClaimRequestedPayload struct {
	OrganizerID int64     `json:"organizer_id"`
	SlotStart   time.Time `json:"slot_start"`
	SlotEnd     time.Time `json:"slot_end"`
}

// ClaimReleasedPayload is sent by a client to abandon a claim early.
type ClaimReleasedPayload struct {
	Handle uuid.UUID `json:"handle"`
}

// ClaimGrantedPayload announces a granted claim. The broadcast copy carries
// no handle; only the requesting client receives it.
type ClaimGrantedPayload struct {
	OrganizerID int64      `json:"organizer_id"`
	SlotStart   time.Time  `json:"slot_start"`
	SlotEnd     time.Time  `json:"slot_end"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Handle      *uuid.UUID `json:"handle,omitempty"`
}

// ClaimDeniedPayload is returned to the requester only, so contention details
// never leak to uninvolved clients.
type ClaimDeniedPayload struct {
	Reason string `json:"reason"`
}

// BookingCreatedPayload announces a committed booking to all subscribers.
type BookingCreatedPayload struct {
	AppointmentID int64     `json:"appointment_id"`
	OrganizerID   int64     `json:"organizer_id"`
	MeetingTypeID int64     `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	Status        string    `json:"status"`
	Invitee       string    `json:"invitee"`
}

// BookingUpdatedPayload announces a cancellation or reschedule.
type BookingUpdatedPayload struct {
	AppointmentID int64                  `json:"appointment_id"`
	UpdatedFields map[string]interface{} `json:"updated_fields"`
	Timestamp     time.Time              `json:"timestamp"`
}

// AvailabilityUpdatedPayload announces a rule, exception or meeting-type
// change so clients can re-resolve slots.
type AvailabilityUpdatedPayload struct {
	UserID       int64       `json:"user_id"`
	Type         string      `json:"type"` // e.g. "recurring_rule", "exception"
	UpdatedEntry interface{} `json:"updated_entry,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}
