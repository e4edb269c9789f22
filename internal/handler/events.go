package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/observability/metrics"
	"github.com/yourorg/taskboard/internal/security/middleware"
)

// EventsHandler streams the acting user's task events over a WebSocket.
// It doubles as a dispatcher listener: every emitted event is fanned out
// to the connections owned by the task's user.
type EventsHandler struct {
	logger         *slog.Logger
	allowedOrigins []string

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> user id
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(logger *slog.Logger, allowedOrigins []string) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventsHandler{
		logger:         logger,
		allowedOrigins: allowedOrigins,
		clients:        make(map[*websocket.Conn]string),
	}
}

func (h *EventsHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin.
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /v1/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.register(ws, user.ID)
	defer h.unregister(ws)

	h.logger.Debug("event stream opened", slog.String("user_id", user.ID))

	// Block reading until the client goes away; events are pushed from
	// Handle on the dispatcher goroutine.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Name implements event.Listener
func (h *EventsHandler) Name() string { return "event-stream" }

// Handle pushes the event to every open stream owned by the task's user
func (h *EventsHandler) Handle(_ context.Context, ev domain.TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ws, userID := range h.clients {
		if userID != ev.Task.UserID {
			continue
		}
		if err := ws.WriteJSON(ev); err != nil {
			h.logger.Debug("event stream write failed, dropping client",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			ws.Close()
			delete(h.clients, ws)
			metrics.DecrementEventStreams()
		}
	}

	return nil
}

func (h *EventsHandler) register(ws *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ws] = userID
	metrics.IncrementEventStreams()
}

func (h *EventsHandler) unregister(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ws]; ok {
		ws.Close()
		delete(h.clients, ws)
		metrics.DecrementEventStreams()
	}
}
