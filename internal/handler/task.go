package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/security/middleware"
	"github.com/yourorg/taskboard/internal/service"
)

// TaskHandler handles the task endpoints. The acting user is resolved by
// the auth middleware; the owner user is resolved from the {user} path
// segment, exactly like the rest of the task routes.
type TaskHandler struct {
	taskService *service.TaskService
	userRepo    domain.UserRepository
	logger      *slog.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService, userRepo domain.UserRepository, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskHandler{
		taskService: taskService,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// ListAll handles GET /v1/users/tasks
func (h *TaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.List(nil)
	if err != nil {
		writeListError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// ListForUser handles GET /v1/users/{user}/tasks
func (h *TaskHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(owner)
	if err != nil {
		writeListError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /v1/users/{user}/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var input service.TaskInput
	if err := decodeJSON(r, &input); err != nil {
		h.logger.Warn("failed to decode task payload", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	task, err := h.taskService.Create(owner, input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Show handles GET /v1/users/{user}/tasks/{task}
func (h *TaskHandler) Show(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(owner, r.PathValue("task"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT /v1/users/{user}/tasks/{task}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var patch service.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.logger.Warn("failed to decode task patch", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.taskService.Update(owner, r.PathValue("task"), patch); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Destroy handles DELETE /v1/users/{user}/tasks/{task}
func (h *TaskHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(owner, r.PathValue("task")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /v1/users/{user}/tasks/{task}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Complete(owner, r.PathValue("task")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathUser resolves the {user} path segment and requires it to be the
// authenticated user. A missing user and someone else's scope render the
// same 404, so task existence is never disclosed across accounts.
func (h *TaskHandler) pathUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	owner, err := h.userRepo.GetByID(r.PathValue("user"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil, false
	}

	acting := middleware.GetUserFromContext(r.Context())
	if acting == nil || acting.ID != owner.ID {
		actingID := ""
		if acting != nil {
			actingID = acting.ID
		}
		h.logger.Warn("task scope access across accounts denied",
			slog.String("path_user_id", owner.ID),
			slog.String("acting_id", actingID),
		)
		writeServiceError(w, h.logger, domain.ErrUserNotFound)
		return nil, false
	}

	return owner, true
}
