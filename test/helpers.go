package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/event"
	"github.com/yourorg/taskboard/internal/handler"
	"github.com/yourorg/taskboard/internal/infrastructure/logger"
	"github.com/yourorg/taskboard/internal/notification"
	"github.com/yourorg/taskboard/internal/security/audit"
	"github.com/yourorg/taskboard/internal/security/auth"
	"github.com/yourorg/taskboard/internal/security/middleware"
	"github.com/yourorg/taskboard/internal/security/ratelimit"
	"github.com/yourorg/taskboard/internal/service"
	"github.com/yourorg/taskboard/pkg/cache"
)

// APIServer assembles the full HTTP stack against in-memory stores so
// the end-to-end flows run without Postgres, Redis or an SMTP relay.
type APIServer struct {
	Server *httptest.Server
	Mailer *RecordingMailer
	Logger *slog.Logger
	cancel context.CancelFunc
}

func NewAPIServer(t *testing.T) *APIServer {
	log := logger.NewLogger("error")

	userRepo := newMemUserRepo()
	taskRepo := newMemTaskRepo()
	tokenRepo := newMemTokenRepo()
	mailer := NewRecordingMailer()

	dispatcher := event.NewDispatcher(log, 64)
	dispatcher.On(domain.EventTaskUpdated, notification.NewTaskUpdatedListener(userRepo, mailer, log))
	dispatcher.On(domain.EventTaskDeleted, notification.NewTaskDeletedListener(userRepo, mailer, log))

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Start(ctx)

	tokenManager := auth.NewTokenManager("integration-test-secret", "taskboard")
	authService := service.NewAuthService(userRepo, tokenRepo, tokenManager, time.Hour, log)
	taskService := service.NewTaskService(taskRepo, userRepo, dispatcher, log)

	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userRepo, log)
	taskHandler := handler.NewTaskHandler(taskService, userRepo, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/users/register", authHandler.Register)
	mux.HandleFunc("POST /v1/users/login", authHandler.Login)
	mux.HandleFunc("GET /v1/users", userHandler.List)
	mux.HandleFunc("GET /v1/users/tasks", taskHandler.ListAll)
	mux.HandleFunc("GET /v1/users/{user}/tasks", taskHandler.ListForUser)
	mux.HandleFunc("POST /v1/users/{user}/tasks", taskHandler.Create)
	mux.HandleFunc("GET /v1/users/{user}/tasks/{task}", taskHandler.Show)
	mux.HandleFunc("PUT /v1/users/{user}/tasks/{task}", taskHandler.Update)
	mux.HandleFunc("DELETE /v1/users/{user}/tasks/{task}", taskHandler.Destroy)
	mux.HandleFunc("POST /v1/users/{user}/tasks/{task}/complete", taskHandler.Complete)

	rateLimiter := ratelimit.NewLimiter(10000, time.Minute)
	auditLogger := audit.NewLogger(log)

	root := middleware.ValidateJSONContentType(log)(
		middleware.AuthMiddleware(authService, cache.New(), log)(
			middleware.AuditMiddleware(auditLogger)(
				middleware.RateLimitMiddleware(rateLimiter, log)(mux),
			),
		),
	)

	server := httptest.NewServer(root)

	t.Cleanup(func() {
		cancel()
		rateLimiter.Stop()
		server.Close()
	})

	return &APIServer{
		Server: server,
		Mailer: mailer,
		Logger: log,
		cancel: cancel,
	}
}

func (s *APIServer) URL() string {
	return s.Server.URL
}

// DoJSON issues a request with an optional bearer token and JSON body
func (s *APIServer) DoJSON(t *testing.T, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL()+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// Register creates an account and returns its user ID
func (s *APIServer) Register(t *testing.T, name, email, password string) string {
	t.Helper()

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var user map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&user)
	id, _ := user["id"].(string)
	if id == "" {
		t.Fatalf("registration returned no user id: %v", user)
	}
	return id
}

// Login authenticates and returns a bearer token
func (s *APIServer) Login(t *testing.T, email, password string) string {
	t.Helper()

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": email, "password": password,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	token, _ := result["access_token"].(string)
	if token == "" {
		t.Fatalf("login returned no access token: %v", result)
	}
	return token
}

// DecodeBody decodes a JSON response body into a generic map
func DecodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// RecordingMailer captures outgoing mail for assertions
type RecordingMailer struct {
	mu     sync.Mutex
	sent   []notification.Message
	signal chan notification.Message
}

func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{signal: make(chan notification.Message, 16)}
}

func (m *RecordingMailer) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.signal <- msg
	return nil
}

// Wait blocks until a message is delivered or the timeout elapses
func (m *RecordingMailer) Wait(t *testing.T, timeout time.Duration) notification.Message {
	t.Helper()
	select {
	case msg := <-m.signal:
		return msg
	case <-time.After(timeout):
		t.Fatalf("no mail delivered within %v", timeout)
		return notification.Message{}
	}
}

func (m *RecordingMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// In-memory stores. They lock because the dispatcher goroutine reads
// users while the test goroutine keeps writing.

type memUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) List() ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.User{}
	for _, u := range m.byID {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type memTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]*domain.Task{}}
}

func (m *memTaskRepo) Create(task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTaskRepo) GetByID(id string) (*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok || task.DeletedAt != nil {
		return nil, domain.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (m *memTaskRepo) List() ([]*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Task{}
	for _, task := range m.tasks {
		if task.DeletedAt == nil {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaskRepo) ListByUser(userID string) ([]*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Task{}
	for _, task := range m.tasks {
		if task.DeletedAt == nil && task.UserID == userID {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaskRepo) Update(task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[task.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTaskRepo) SoftDelete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.DeletedAt != nil {
		return domain.ErrTaskNotFound
	}
	now := time.Now()
	task.DeletedAt = &now
	return nil
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
