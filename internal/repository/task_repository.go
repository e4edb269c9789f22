package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yourorg/taskboard/internal/domain"
)

// PostgresTaskRepository implements domain.TaskRepository using PostgreSQL.
// Soft-deleted rows (deleted_at set) are filtered out of every read.
type PostgresTaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskRepository creates a new task repository
func NewPostgresTaskRepository(db *sql.DB, logger *slog.Logger) *PostgresTaskRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new task
func (r *PostgresTaskRepository) Create(task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create task",
			slog.String("user_id", task.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted task by ID
func (r *PostgresTaskRepository) GetByID(id string) (*domain.Task, error) {
	task := &domain.Task{}

	query := `
		SELECT id, user_id, title, description, completed_at, deleted_at, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := r.db.QueryRow(query, id).Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.CompletedAt,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		r.logger.Error("failed to get task by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// List returns all non-deleted tasks
func (r *PostgresTaskRepository) List() ([]*domain.Task, error) {
	query := `
		SELECT id, user_id, title, description, completed_at, deleted_at, created_at, updated_at
		FROM tasks
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
	`

	return r.queryTasks(query)
}

// ListByUser returns one user's non-deleted tasks
func (r *PostgresTaskRepository) ListByUser(userID string) ([]*domain.Task, error) {
	query := `
		SELECT id, user_id, title, description, completed_at, deleted_at, created_at, updated_at
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	return r.queryTasks(query, userID)
}

// Update persists title, description, ownership and completion changes
func (r *PostgresTaskRepository) Update(task *domain.Task) error {
	query := `
		UPDATE tasks
		SET user_id = $1, title = $2, description = $3, completed_at = $4, updated_at = now()
		WHERE id = $5 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		task.UserID,
		task.Title,
		task.Description,
		task.CompletedAt,
		task.ID,
	).Scan(&task.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// SoftDelete stamps deleted_at and keeps the row
func (r *PostgresTaskRepository) SoftDelete(id string) error {
	query := `
		UPDATE tasks
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

func (r *PostgresTaskRepository) queryTasks(query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task := &domain.Task{}
		err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Description,
			&task.CompletedAt,
			&task.DeletedAt,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}
