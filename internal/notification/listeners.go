// Package notification turns task events into emails to the task's owner.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/observability/metrics"
)

// TaskMailListener is the shared shape of the per-kind email listeners: it
// resolves the owning user from the event snapshot, composes the email and
// hands it to the transport.
type TaskMailListener struct {
	name    string
	subject string
	verb    string
	users   domain.UserRepository
	mailer  Mailer
	logger  *slog.Logger
}

// NewTaskUpdatedListener notifies the owner that their task changed
func NewTaskUpdatedListener(users domain.UserRepository, mailer Mailer, logger *slog.Logger) *TaskMailListener {
	return newTaskMailListener("send-task-updated-email", "Your Task has been updated", "updated", users, mailer, logger)
}

// NewTaskDeletedListener notifies the owner that their task was removed
func NewTaskDeletedListener(users domain.UserRepository, mailer Mailer, logger *slog.Logger) *TaskMailListener {
	return newTaskMailListener("send-task-deleted-email", "Your Task has been deleted", "deleted", users, mailer, logger)
}

// NewTaskCreatedListener notifies the owner about a new task. It is only
// registered when the notify_on_create flag is set; by default creation is
// silent.
func NewTaskCreatedListener(users domain.UserRepository, mailer Mailer, logger *slog.Logger) *TaskMailListener {
	return newTaskMailListener("send-task-created-email", "Your Task has been created", "created", users, mailer, logger)
}

func newTaskMailListener(name, subject, verb string, users domain.UserRepository, mailer Mailer, logger *slog.Logger) *TaskMailListener {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskMailListener{
		name:    name,
		subject: subject,
		verb:    verb,
		users:   users,
		mailer:  mailer,
		logger:  logger,
	}
}

func (l *TaskMailListener) Name() string { return l.name }

// Handle composes and sends the email. A returned error is counted and
// logged by the dispatcher; it never reaches the HTTP caller whose
// mutation already committed.
func (l *TaskMailListener) Handle(ctx context.Context, ev domain.TaskEvent) error {
	user, err := l.users.GetByID(ev.Task.UserID)
	if err != nil {
		metrics.ObserveNotification(string(ev.Kind), "no_user")
		return fmt.Errorf("failed to resolve task owner %s: %w", ev.Task.UserID, err)
	}

	msg := Message{
		To:      user.Email,
		Subject: l.subject,
		Body: fmt.Sprintf("Hi %s,\n\nYour task %q has been %s.\n",
			user.Name, ev.Task.Title, l.verb),
	}

	if err := l.mailer.Send(ctx, msg); err != nil {
		metrics.ObserveNotification(string(ev.Kind), "error")
		return fmt.Errorf("failed to send %s mail: %w", l.verb, err)
	}

	l.logger.Info("notification sent",
		slog.String("listener", l.name),
		slog.String("to", user.Email),
		slog.String("task_id", ev.Task.ID),
	)
	metrics.ObserveNotification(string(ev.Kind), "success")

	return nil
}
