package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/taskboard/internal/domain"
)

// MessageResponse is the body of plain error responses
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationResponse is the 422 envelope: a message plus a field ->
// messages mapping
type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeServiceError translates service errors to HTTP responses. Ownership
// mismatches arrive here as ErrTaskNotFound and render as 404.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Message: "Invalid data.",
			Errors:  verr.Fields,
		})
	case errors.Is(err, domain.ErrTaskNotFound):
		writeMessage(w, http.StatusNotFound, "Task not found.")
	case errors.Is(err, domain.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, domain.ErrTaskAlreadyCompleted):
		writeMessage(w, http.StatusUnprocessableEntity, "Task already completed.")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeMessage(w, http.StatusInternalServerError, "Server error.")
	}
}

// writeListError renders an empty listing as a pluralized 404
func writeListError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, domain.ErrTaskNotFound) {
		writeMessage(w, http.StatusNotFound, "Tasks not found.")
		return
	}
	writeServiceError(w, logger, err)
}

// decodeJSON parses a request body, tolerating an empty body so PUT with no
// fields still reaches the cross-field validation
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
