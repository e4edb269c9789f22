package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stamps the request id onto the context so every audit
// entry written downstream carries it. The request-id middleware calls
// this once per request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the stamped request id, or "" when the
// context never passed through the request-id middleware.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	requestID := RequestIDFromContext(ctx)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, userID, status, details string) {
	al.LogAction(ctx, userID, "login", "session", "", status, details)
}

func (al *Logger) LogTaskMutation(ctx context.Context, userID, action, taskID, status string) {
	al.LogAction(ctx, userID, action, "task", taskID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
