package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/taskboard/internal/domain"
)

// In-memory fakes shared by the service tests.

type memUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) List() ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

type memTaskRepo struct {
	tasks map[string]*domain.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]*domain.Task{}}
}

func (m *memTaskRepo) Create(t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memTaskRepo) GetByID(id string) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt != nil {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaskRepo) List() ([]*domain.Task, error) {
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.DeletedAt == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaskRepo) ListByUser(userID string) ([]*domain.Task, error) {
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.DeletedAt == nil && t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaskRepo) Update(t *domain.Task) error {
	stored, ok := m.tasks[t.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrTaskNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memTaskRepo) SoftDelete(id string) error {
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt != nil {
		return domain.ErrTaskNotFound
	}
	now := time.Now()
	t.DeletedAt = &now
	return nil
}

// raw exposes the stored row, deleted or not, for soft-delete assertions
func (m *memTaskRepo) raw(id string) *domain.Task {
	return m.tasks[id]
}

type memTokenRepo struct {
	mu   sync.Mutex
	live map[string]string
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{live: map[string]string{}}
}

func (m *memTokenRepo) Save(_ context.Context, tokenID, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[tokenID] = userID
	return nil
}

func (m *memTokenRepo) IsLive(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[tokenID]
	return ok, nil
}

func (m *memTokenRepo) Revoke(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[tokenID]; !ok {
		return fmt.Errorf("token %s not found", tokenID)
	}
	delete(m.live, tokenID)
	return nil
}

// eventRecorder records emitted events in order
type eventRecorder struct {
	events []domain.TaskEvent
}

func (r *eventRecorder) Emit(ev domain.TaskEvent) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}
