package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Status: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message, Details: details})
}

// handleError maps a service error to its HTTP status. Unexpected errors are
// logged with their cause and answered with a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *appointment.Error
	message, details := "Internal server error", ""
	if errors.As(err, &svcErr) {
		message, details = svcErr.Message, svcErr.Details
	}

	switch appointment.KindOf(err) {
	case appointment.KindValidation:
		writeError(w, http.StatusBadRequest, message, details)
	case appointment.KindNotFound:
		writeError(w, http.StatusNotFound, message, details)
	case appointment.KindConflict:
		writeError(w, http.StatusConflict, message, details)
	default:
		event := zerolog.Ctx(r.Context()).Error().Err(err)
		if svcErr != nil {
			event = event.Str("op", svcErr.Message)
		}
		event.Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}
