package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotwise/slotwise/internal/model"
)

const defaultSlotRangeDays = 7

type slotsResponse struct {
	Organizer string       `json:"organizer"`
	From      time.Time    `json:"from"`
	To        time.Time    `json:"to"`
	Slots     []model.Slot `json:"slots"`
}

// getSlots resolves the bookable slots for an organizer. Query params:
// from and to as RFC 3339 timestamps (default now .. now+7d), and an
// optional meeting_type_id.
func (a *API) getSlots(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	q := r.URL.Query()

	from := time.Now().UTC()
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.writeBadRequest(w, "from must be an RFC 3339 timestamp")
			return
		}
		from = parsed
	}

	to := from.AddDate(0, 0, defaultSlotRangeDays)
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.writeBadRequest(w, "to must be an RFC 3339 timestamp")
			return
		}
		to = parsed
	}

	var meetingTypeID int64
	if raw := q.Get("meeting_type_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			a.writeBadRequest(w, "meeting_type_id must be a positive integer")
			return
		}
		meetingTypeID = parsed
	}

	slots, err := a.availability.ResolveSlots(r.Context(), username, from, to, meetingTypeID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	if slots == nil {
		slots = []model.Slot{}
	}
	a.writeJSON(w, http.StatusOK, slotsResponse{
		Organizer: username,
		From:      from,
		To:        to,
		Slots:     slots,
	})
}
