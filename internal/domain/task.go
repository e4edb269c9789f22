package domain

import "time"

// Task represents a task owned by exactly one user. Deletion is a soft
// delete: DeletedAt is stamped and the row retained, but every normal read
// path excludes it.
type Task struct {
	ID          string     `json:"id"` // UUID
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CompletedAt *time.Time `json:"completed_at"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnedBy reports whether the task belongs to the given user. Every
// task-scoped operation routes its ownership check through this predicate;
// a mismatch is reported to callers as a missing task, not a forbidden one,
// so task existence never leaks across accounts.
func (t *Task) OwnedBy(u *User) bool {
	if u == nil {
		return false
	}
	return t.UserID == u.ID
}

// IsCompleted reports whether the task has been completed. CompletedAt is
// stamped at most once; there is no un-completing.
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}

// TaskRepository defines data access for tasks. All read methods exclude
// soft-deleted rows.
type TaskRepository interface {
	Create(task *Task) error
	GetByID(id string) (*Task, error)
	List() ([]*Task, error)
	ListByUser(userID string) ([]*Task, error)
	Update(task *Task) error
	SoftDelete(id string) error
}
