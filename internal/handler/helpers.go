package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"notedeck/internal/middleware"
	"notedeck/internal/service"
	"notedeck/pkg/helpers"
	"notedeck/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service sentinel errors to HTTP statuses. Anything
// unrecognized is logged with context and surfaced as a generic 500 so
// internals never leak to the caller.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, service.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "Title required")
	case errors.Is(err, service.ErrNoRecipients):
		writeError(w, http.StatusBadRequest, "No users selected")
	case errors.Is(err, service.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "Notification not found")
	default:
		log.WithField("error", err.Error()).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeValidationError writes a validation error response, preserving
// per-field messages when the error comes from the validator.
func writeValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		helpers.WriteValidationErrorResponse(w, validationErrors)
		return
	}
	helpers.WriteValidationErrorResponseFromString(w, err.Error())
}

// actorFromRequest resolves the authenticated caller set by the auth
// middleware. The false return means the response has already been written.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	userCtx, err := middleware.GetUserFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return service.Actor{}, false
	}
	return service.Actor{ID: userCtx.UserID, Username: userCtx.Username}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
