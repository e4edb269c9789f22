package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/taskboard/internal/domain"
)

// UserHandler lists registered users
type UserHandler struct {
	userRepo domain.UserRepository
	logger   *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo domain.UserRepository, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserHandler{
		userRepo: userRepo,
		logger:   logger,
	}
}

// List handles GET /v1/users. An empty table reads as absence, matching
// the task listing contract.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.List()
	if err != nil {
		h.logger.Error("failed to list users", slog.String("error", err.Error()))
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	if len(users) == 0 {
		writeMessage(w, http.StatusNotFound, "Users not found.")
		return
	}

	writeJSON(w, http.StatusOK, users)
}
