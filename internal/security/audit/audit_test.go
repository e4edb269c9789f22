package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLogActionCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-1234")
	al.LogTaskMutation(ctx, "user-1", "update_task", "task-9", "success")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode audit entry: %v", err)
	}

	if entry["request_id"] != "req-1234" {
		t.Errorf("Expected request_id req-1234, got %v", entry["request_id"])
	}
	if entry["action"] != "update_task" {
		t.Errorf("Expected action update_task, got %v", entry["action"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("Expected user_id user-1, got %v", entry["user_id"])
	}
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("Expected empty request id, got %q", id)
	}
}
