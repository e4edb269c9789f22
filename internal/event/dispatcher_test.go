package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/taskboard/internal/domain"
)

type recordingListener struct {
	name string
	mu   sync.Mutex
	got  []domain.TaskEvent
	done chan struct{}
	fail error
	boom bool
}

func newRecordingListener(name string) *recordingListener {
	return &recordingListener{name: name, done: make(chan struct{}, 16)}
}

func (l *recordingListener) Name() string { return l.name }

func (l *recordingListener) Handle(_ context.Context, ev domain.TaskEvent) error {
	l.mu.Lock()
	l.got = append(l.got, ev)
	l.mu.Unlock()
	l.done <- struct{}{}
	if l.boom {
		panic("listener exploded")
	}
	return l.fail
}

func (l *recordingListener) events() []domain.TaskEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TaskEvent, len(l.got))
	copy(out, l.got)
	return out
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for listener")
	}
}

func TestDispatcherDeliversToRegisteredKind(t *testing.T) {
	d := NewDispatcher(nil, 8)
	updated := newRecordingListener("updated")
	deleted := newRecordingListener("deleted")
	d.On(domain.EventTaskUpdated, updated)
	d.On(domain.EventTaskDeleted, deleted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Emit(domain.NewTaskEvent(domain.EventTaskUpdated, &domain.Task{ID: "t-1"}))
	waitFor(t, updated.done)

	if got := updated.events(); len(got) != 1 || got[0].Task.ID != "t-1" {
		t.Fatalf("unexpected events for updated listener: %+v", got)
	}
	if got := deleted.events(); len(got) != 0 {
		t.Fatalf("deleted listener should not have been invoked: %+v", got)
	}
}

func TestDispatcherIsolatesListenerFailure(t *testing.T) {
	d := NewDispatcher(nil, 8)
	failing := newRecordingListener("failing")
	failing.fail = errors.New("smtp unreachable")
	healthy := newRecordingListener("healthy")

	// Failing listener registered first; the second must still run.
	d.On(domain.EventTaskDeleted, failing)
	d.On(domain.EventTaskDeleted, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Emit(domain.NewTaskEvent(domain.EventTaskDeleted, &domain.Task{ID: "t-2"}))
	waitFor(t, failing.done)
	waitFor(t, healthy.done)

	if len(healthy.events()) != 1 {
		t.Fatalf("healthy listener should have run despite earlier failure")
	}
}

func TestDispatcherRecoversListenerPanic(t *testing.T) {
	d := NewDispatcher(nil, 8)
	panicking := newRecordingListener("panicking")
	panicking.boom = true
	after := newRecordingListener("after")

	d.On(domain.EventTaskUpdated, panicking)
	d.On(domain.EventTaskUpdated, after)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Emit(domain.NewTaskEvent(domain.EventTaskUpdated, &domain.Task{ID: "t-3"}))
	waitFor(t, panicking.done)
	waitFor(t, after.done)

	// Delivery loop must survive the panic and handle the next event.
	d.Emit(domain.NewTaskEvent(domain.EventTaskUpdated, &domain.Task{ID: "t-4"}))
	waitFor(t, panicking.done)
	waitFor(t, after.done)

	if len(after.events()) != 2 {
		t.Fatalf("expected 2 deliveries after panic, got %d", len(after.events()))
	}
}

func TestEmitNeverBlocksWhenQueueFull(t *testing.T) {
	// No Start: nothing drains the queue.
	d := NewDispatcher(nil, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Emit(domain.NewTaskEvent(domain.EventTaskUpdated, &domain.Task{ID: "t"}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Emit blocked on a full queue")
	}
}
