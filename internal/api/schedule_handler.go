package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotwise/slotwise/internal/model"
)

const dateLayout = "2006-01-02"

func (a *API) organizerFromPath(w http.ResponseWriter, r *http.Request) (*model.Organizer, bool) {
	organizer, err := a.schedule.GetOrganizerByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		a.writeServiceError(w, err)
		return nil, false
	}
	return organizer, true
}

func (a *API) idFromPath(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		a.writeBadRequest(w, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

type ruleRequest struct {
	Weekday             int `json:"weekday" validate:"min=0,max=6"`
	StartMinute         int `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute           int `json:"end_minute" validate:"min=1,max=1440"`
	BufferBeforeMinutes int `json:"buffer_before_minutes" validate:"min=0"`
	BufferAfterMinutes  int `json:"buffer_after_minutes" validate:"min=0"`
	SlotDurationMinutes int `json:"slot_duration_minutes" validate:"required,gt=0"`
}

func (a *API) listRules(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	rules, err := a.schedule.ListRules(r.Context(), organizer.ID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []model.RecurringRule{}
	}
	a.writeJSON(w, http.StatusOK, rules)
}

func (a *API) createRule(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	var req ruleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	rule := &model.RecurringRule{
		OrganizerID:         organizer.ID,
		Weekday:             req.Weekday,
		StartMinute:         req.StartMinute,
		EndMinute:           req.EndMinute,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}
	if err := a.schedule.CreateRule(r.Context(), rule); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, rule)
}

func (a *API) updateRule(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}
	ruleID, ok := a.idFromPath(w, r, "ruleID")
	if !ok {
		return
	}

	var req ruleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	rule := &model.RecurringRule{
		ID:                  ruleID,
		Weekday:             req.Weekday,
		StartMinute:         req.StartMinute,
		EndMinute:           req.EndMinute,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		SlotDurationMinutes: req.SlotDurationMinutes,
		IsActive:            true,
	}
	if err := a.schedule.UpdateRule(r.Context(), organizer.ID, rule); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rule)
}

func (a *API) deleteRule(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}
	ruleID, ok := a.idFromPath(w, r, "ruleID")
	if !ok {
		return
	}

	if err := a.schedule.DeleteRule(r.Context(), organizer.ID, ruleID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

type exceptionRequest struct {
	Date        string `json:"date" validate:"required"`
	StartMinute *int   `json:"start_minute" validate:"omitempty,min=0,max=1439"`
	EndMinute   *int   `json:"end_minute" validate:"omitempty,min=1,max=1440"`
	Note        string `json:"note,omitempty" validate:"omitempty,max=500"`
}

func (a *API) listExceptions(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			a.writeBadRequest(w, "from must be a yyyy-mm-dd date")
			return
		}
		from = parsed
	}
	to := from.AddDate(0, 3, 0)
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			a.writeBadRequest(w, "to must be a yyyy-mm-dd date")
			return
		}
		to = parsed
	}

	entries, err := a.schedule.ListExceptions(r.Context(), organizer.ID, from, to)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.ExceptionEntry{}
	}
	a.writeJSON(w, http.StatusOK, entries)
}

func (a *API) upsertException(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	var req exceptionRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		a.writeBadRequest(w, "date must be a yyyy-mm-dd date")
		return
	}

	entry := &model.ExceptionEntry{
		OrganizerID: organizer.ID,
		Date:        date,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Note:        req.Note,
	}
	if err := a.schedule.UpsertException(r.Context(), entry); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, entry)
}

func (a *API) deleteException(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}
	exceptionID, ok := a.idFromPath(w, r, "exceptionID")
	if !ok {
		return
	}

	if err := a.schedule.DeleteException(r.Context(), organizer.ID, exceptionID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

type meetingTypeRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	IsDefault       bool   `json:"is_default"`
}

func (a *API) listMeetingTypes(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	types, err := a.schedule.ListMeetingTypes(r.Context(), organizer.ID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if types == nil {
		types = []*model.MeetingType{}
	}
	a.writeJSON(w, http.StatusOK, types)
}

func (a *API) createMeetingType(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}

	var req meetingTypeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	mt := &model.MeetingType{
		OrganizerID:     organizer.ID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		IsDefault:       req.IsDefault,
	}
	if err := a.schedule.CreateMeetingType(r.Context(), mt); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, mt)
}

func (a *API) deactivateMeetingType(w http.ResponseWriter, r *http.Request) {
	organizer, ok := a.organizerFromPath(w, r)
	if !ok {
		return
	}
	meetingTypeID, ok := a.idFromPath(w, r, "meetingTypeID")
	if !ok {
		return
	}

	if err := a.schedule.DeactivateMeetingType(r.Context(), organizer.ID, meetingTypeID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}
