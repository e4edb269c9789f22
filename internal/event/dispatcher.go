package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/observability/metrics"
)

// Listener reacts to a task event. Listener failures are isolated: an
// error or panic is logged and counted but never stops the remaining
// listeners, and never reaches the request that triggered the event.
type Listener interface {
	Name() string
	Handle(ctx context.Context, ev domain.TaskEvent) error
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc struct {
	ListenerName string
	Fn           func(ctx context.Context, ev domain.TaskEvent) error
}

func (f ListenerFunc) Name() string { return f.ListenerName }

func (f ListenerFunc) Handle(ctx context.Context, ev domain.TaskEvent) error {
	return f.Fn(ctx, ev)
}

// Dispatcher decouples task mutations from their side effects. The
// kind -> listeners mapping is fixed before Start; Emit enqueues onto a
// bounded buffer and never blocks the request path — when the buffer is
// full the event is dropped and counted. A background loop drains the
// buffer and invokes listeners in registration order.
type Dispatcher struct {
	listeners map[domain.EventKind][]Listener
	queue     chan domain.TaskEvent
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewDispatcher creates a dispatcher with the given queue capacity
func NewDispatcher(logger *slog.Logger, buffer int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}

	return &Dispatcher{
		listeners: make(map[domain.EventKind][]Listener),
		queue:     make(chan domain.TaskEvent, buffer),
		logger:    logger,
	}
}

// On registers a listener for an event kind. Registration happens at
// startup, before Start; calls after Start are ignored.
func (d *Dispatcher) On(kind domain.EventKind, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.logger.Warn("listener registration after start ignored",
			slog.String("kind", string(kind)),
			slog.String("listener", l.Name()),
		)
		return
	}
	d.listeners[kind] = append(d.listeners[kind], l)
}

// Emit enqueues a committed event for delivery. The triggering mutation is
// already persisted when Emit runs, so a full queue loses the notification,
// not the write.
func (d *Dispatcher) Emit(ev domain.TaskEvent) {
	select {
	case d.queue <- ev:
		metrics.ObserveEventEmitted(string(ev.Kind))
	default:
		d.logger.Warn("event queue full, dropping event",
			slog.String("kind", string(ev.Kind)),
			slog.String("task_id", ev.Task.ID),
		)
		metrics.ObserveEventDropped(string(ev.Kind))
	}
}

// Start runs the delivery loop until ctx is cancelled. Run it in a
// goroutine from main.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()

	d.logger.Info("event dispatcher started", slog.Int("buffer", cap(d.queue)))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("event dispatcher stopped")
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

// deliver invokes every listener registered for the event's kind
func (d *Dispatcher) deliver(ctx context.Context, ev domain.TaskEvent) {
	for _, l := range d.listeners[ev.Kind] {
		d.runListener(ctx, l, ev)
	}
}

func (d *Dispatcher) runListener(ctx context.Context, l Listener, ev domain.TaskEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked",
				slog.String("listener", l.Name()),
				slog.String("kind", string(ev.Kind)),
				slog.Any("panic", r),
			)
			metrics.ObserveEventDelivery(string(ev.Kind), l.Name(), "panic")
		}
	}()

	if err := l.Handle(ctx, ev); err != nil {
		d.logger.Error("listener failed",
			slog.String("listener", l.Name()),
			slog.String("kind", string(ev.Kind)),
			slog.String("task_id", ev.Task.ID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveEventDelivery(string(ev.Kind), l.Name(), "error")
		return
	}

	metrics.ObserveEventDelivery(string(ev.Kind), l.Name(), "success")
}
