package service

import (
	"log/slog"
	"time"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/validation"
)

// EventEmitter enqueues committed task events for asynchronous delivery
type EventEmitter interface {
	Emit(ev domain.TaskEvent)
}

// TaskService implements task CRUD, completion and ownership enforcement.
// Every mutation persists before its event is emitted, so a lost or failed
// notification never rolls back a write.
type TaskService struct {
	taskRepo domain.TaskRepository
	userRepo domain.UserRepository
	events   EventEmitter
	logger   *slog.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo domain.TaskRepository,
	userRepo domain.UserRepository,
	events EventEmitter,
	logger *slog.Logger,
) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		events:   events,
		logger:   logger,
	}
}

// TaskInput is the task creation payload schema
type TaskInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=65535"`
}

// TaskPatch is the task update payload schema. At least one of user_id,
// title or description must be present; an all-absent patch reports the
// title and description fields.
type TaskPatch struct {
	UserID      *string `json:"user_id" validate:"omitempty,uuid4"`
	Title       *string `json:"title" validate:"required_without_all=UserID Description,omitempty,max=255"`
	Description *string `json:"description" validate:"required_without_all=UserID Title,omitempty,max=65535"`
}

// List returns the owner's tasks, or every task when owner is nil. An empty
// result is reported as ErrTaskNotFound: the API treats an empty listing as
// absence, not an empty success.
func (s *TaskService) List(owner *domain.User) ([]*domain.Task, error) {
	var (
		tasks []*domain.Task
		err   error
	)

	if owner != nil {
		tasks, err = s.taskRepo.ListByUser(owner.ID)
	} else {
		tasks, err = s.taskRepo.List()
	}
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		return nil, domain.ErrTaskNotFound
	}

	return tasks, nil
}

// Create stores a new task owned by owner and emits task.created. No
// listener is registered for creation by default, so creating stays silent.
func (s *TaskService) Create(owner *domain.User, input TaskInput) (*domain.Task, error) {
	if verr := validation.Check(input); verr != nil {
		return nil, verr
	}

	task := &domain.Task{
		UserID:      owner.ID,
		Title:       input.Title,
		Description: input.Description,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", owner.ID),
	)

	s.events.Emit(domain.NewTaskEvent(domain.EventTaskCreated, task))

	return task, nil
}

// Get returns a task the owner can see. A task owned by someone else is
// reported as missing.
func (s *TaskService) Get(owner *domain.User, taskID string) (*domain.Task, error) {
	return s.ownedTask(owner, taskID)
}

// Update validates and applies a patch, persists it and emits task.updated
func (s *TaskService) Update(owner *domain.User, taskID string, patch TaskPatch) error {
	task, err := s.ownedTask(owner, taskID)
	if err != nil {
		return err
	}

	if verr := validation.Check(patch); verr != nil {
		return verr
	}

	if patch.UserID != nil {
		if _, err := s.userRepo.GetByID(*patch.UserID); err != nil {
			return domain.NewValidationError("user_id", "The selected user id is invalid.")
		}
		task.UserID = *patch.UserID
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}

	if err := s.taskRepo.Update(task); err != nil {
		return err
	}

	s.logger.Info("task updated", slog.String("task_id", task.ID))

	s.events.Emit(domain.NewTaskEvent(domain.EventTaskUpdated, task))

	return nil
}

// Delete soft-deletes the task and emits task.deleted. The row stays in
// storage with deleted_at stamped.
func (s *TaskService) Delete(owner *domain.User, taskID string) error {
	task, err := s.ownedTask(owner, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.SoftDelete(task.ID); err != nil {
		return err
	}

	now := time.Now()
	task.DeletedAt = &now

	s.logger.Info("task deleted", slog.String("task_id", task.ID))

	s.events.Emit(domain.NewTaskEvent(domain.EventTaskDeleted, task))

	return nil
}

// Complete stamps completed_at exactly once. A second completion is
// rejected and leaves the timestamp untouched. Completion emits no event.
func (s *TaskService) Complete(owner *domain.User, taskID string) error {
	task, err := s.ownedTask(owner, taskID)
	if err != nil {
		return err
	}

	if task.IsCompleted() {
		return domain.ErrTaskAlreadyCompleted
	}

	now := time.Now()
	task.CompletedAt = &now

	if err := s.taskRepo.Update(task); err != nil {
		return err
	}

	s.logger.Info("task completed", slog.String("task_id", task.ID))

	return nil
}

// ownedTask loads a task and applies the ownership predicate. Both a
// missing task and an ownership mismatch come back as ErrTaskNotFound.
func (s *TaskService) ownedTask(owner *domain.User, taskID string) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, err
	}

	if !task.OwnedBy(owner) {
		actingID := ""
		if owner != nil {
			actingID = owner.ID
		}
		s.logger.Warn("task access across owners denied",
			slog.String("task_id", task.ID),
			slog.String("owner_id", task.UserID),
			slog.String("acting_id", actingID),
		)
		return nil, domain.ErrTaskNotFound
	}

	return task, nil
}
