package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/service"
)

type createBookingRequest struct {
	MeetingTypeID int64     `json:"meeting_type_id" validate:"required,gt=0"`
	SlotStart     time.Time `json:"slot_start" validate:"required"`
	ClaimHandle   string    `json:"claim_handle,omitempty" validate:"omitempty,uuid4"`
	InviteeName   string    `json:"invitee_name" validate:"required,max=200"`
	InviteeEmail  string    `json:"invitee_email" validate:"required,email"`
	InviteePhone  string    `json:"invitee_phone,omitempty" validate:"omitempty,max=40"`
	Notes         string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type bookingResponse struct {
	AppointmentID int64     `json:"appointment_id"`
	OrganizerID   int64     `json:"organizer_id"`
	MeetingTypeID int64     `json:"meeting_type_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	Status        string    `json:"status"`
	ManageToken   uuid.UUID `json:"manage_token"`
}

func toBookingResponse(appt *model.Appointment) bookingResponse {
	return bookingResponse{
		AppointmentID: appt.ID,
		OrganizerID:   appt.OrganizerID,
		MeetingTypeID: appt.MeetingTypeID,
		SlotStart:     appt.SlotStart,
		SlotEnd:       appt.SlotEnd,
		Status:        string(appt.Status),
		ManageToken:   appt.ManageToken,
	}
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	var handle uuid.UUID
	if req.ClaimHandle != "" {
		parsed, err := uuid.Parse(req.ClaimHandle)
		if err != nil {
			a.writeBadRequest(w, "claim_handle is not a valid UUID")
			return
		}
		handle = parsed
	}

	appt, err := a.bookings.ConvertClaim(r.Context(), service.BookingRequest{
		MeetingTypeID: req.MeetingTypeID,
		SlotStart:     req.SlotStart,
		ClaimHandle:   handle,
		InviteeName:   req.InviteeName,
		InviteeEmail:  req.InviteeEmail,
		InviteePhone:  req.InviteePhone,
		InviteeNotes:  req.Notes,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, toBookingResponse(appt))
}

func (a *API) cancelBooking(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(chi.URLParam(r, "manageToken"))
	if err != nil {
		a.writeBadRequest(w, "manage token is not a valid UUID")
		return
	}

	appt, err := a.bookings.CancelBooking(r.Context(), token)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

type rescheduleRequest struct {
	SlotStart time.Time `json:"slot_start" validate:"required"`
}

func (a *API) rescheduleBooking(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(chi.URLParam(r, "manageToken"))
	if err != nil {
		a.writeBadRequest(w, "manage token is not a valid UUID")
		return
	}

	var req rescheduleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	appt, err := a.bookings.RescheduleBooking(r.Context(), token, req.SlotStart)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, toBookingResponse(appt))
}
