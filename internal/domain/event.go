package domain

import "time"

// EventKind identifies a task lifecycle event
type EventKind string

const (
	EventTaskCreated EventKind = "task.created"
	EventTaskUpdated EventKind = "task.updated"
	EventTaskDeleted EventKind = "task.deleted"
)

// TaskEvent describes a committed task mutation. It carries a snapshot of
// the task taken at emission time so listeners never race against later
// mutations of the row.
type TaskEvent struct {
	Kind       EventKind `json:"kind"`
	Task       Task      `json:"task"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent snapshots the task into an event
func NewTaskEvent(kind EventKind, task *Task) TaskEvent {
	return TaskEvent{
		Kind:       kind,
		Task:       *task,
		OccurredAt: time.Now(),
	}
}
