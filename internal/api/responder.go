package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/service"
)

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (a *API) writeBadRequest(w http.ResponseWriter, message string) {
	a.writeJSON(w, http.StatusBadRequest, errorResponse{Message: message})
}

// writeServiceError maps service errors onto HTTP statuses. Anything not in
// the taxonomy is a 500 and gets logged with its cause; taxonomy errors are
// the client's fault and only reach the response body.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		a.writeJSON(w, http.StatusNotFound, errorResponse{Message: "resource not found"})
	case errors.Is(err, service.ErrConflict):
		a.writeJSON(w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_TAKEN",
			Message:   "the slot is no longer available",
		})
	case errors.Is(err, claim.ErrExpired):
		a.writeJSON(w, http.StatusConflict, errorResponse{
			ErrorCode: "CLAIM_EXPIRED",
			Message:   "the slot claim expired, request the slot again",
		})
	default:
		if v, ok := service.AsValidation(err); ok {
			a.writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "invalid request",
				Errors:  v.FieldErrors,
			})
			return
		}
		a.logger.Error("Request failed", zap.Error(err))
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// Returns false after writing the error response.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeBadRequest(w, "malformed JSON body")
		return false
	}

	if err := a.validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make(map[string]string, len(invalid))
			for _, fe := range invalid {
				fields[fe.Field()] = "failed validation on tag '" + fe.Tag() + "'"
			}
			a.writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "invalid request",
				Errors:  fields,
			})
			return false
		}
		a.writeBadRequest(w, "invalid request")
		return false
	}
	return true
}
