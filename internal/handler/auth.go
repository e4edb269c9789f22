package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/taskboard/internal/service"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// TokenResponse carries the issued bearer token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Register handles POST /v1/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.authService.Register(input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Login handles POST /v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
}
