// Package events delivers domain events to subscribers after the producing
// unit of work has committed. Delivery is at-most-once: sink failures are
// logged and dropped, never surfaced to the caller.
package events

import (
	"context"
	"sync"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Publisher accepts committed domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...models.Event)
}

// Sink is a delivery target such as a message broker.
type Sink interface {
	Name() string
	Send(ctx context.Context, event models.Event) error
}

const sendTimeout = 10 * time.Second

// Dispatcher queues events and fans them out to sinks on a background goroutine
type Dispatcher struct {
	queue  chan models.Event
	sinks  []Sink
	logger *logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given queue size.
func NewDispatcher(log *logger.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:  make(chan models.Event, buffer),
		sinks:  sinks,
		logger: log,
	}
}

// Publish enqueues events without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, events ...models.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ev := range events {
		ev = withRequestID(ctx, ev)
		if d.closed {
			d.logger.Warn("event_dropped", "Dispatcher closed, dropping event", ev.RequestID, eventFields(ev))
			continue
		}
		select {
		case d.queue <- ev:
		default:
			d.logger.Warn("event_dropped", "Event queue full, dropping event", ev.RequestID, eventFields(ev))
		}
	}
}

// Run delivers queued events until Close is called and the queue is drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	base := context.WithoutCancel(ctx)
	for ev := range d.queue {
		d.deliver(base, ev)
	}
	return nil
}

// Close stops accepting events. Run returns once the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) deliver(ctx context.Context, ev models.Event) {
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := sink.Send(sendCtx, ev)
		cancel()

		if err != nil {
			fields := eventFields(ev)
			fields["sink"] = sink.Name()
			d.logger.Error("event_delivery_failed", "Failed to deliver event", ev.RequestID, err, fields)
		}
	}
}

func eventFields(ev models.Event) map[string]interface{} {
	return map[string]interface{}{
		"event_id":   ev.ID,
		"event_type": string(ev.Type),
		"entity_id":  ev.EntityID(),
	}
}

// LogSink writes every event to the service log
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, ev models.Event) error {
	fields := eventFields(ev)
	if ev.OldStatus != "" {
		fields["old_status"] = ev.OldStatus
	}
	if ev.NewStatus != "" {
		fields["new_status"] = ev.NewStatus
	}
	if ev.Station != "" {
		fields["station"] = string(ev.Station)
	}
	s.logger.Info("domain_event", string(ev.Type), ev.RequestID, fields)
	return nil
}

// withRequestID tags ev with the request id carried by ctx unless it already has one.
func withRequestID(ctx context.Context, ev models.Event) models.Event {
	if ev.RequestID == "" {
		ev.RequestID = logger.RequestID(ctx)
	}
	return ev
}

// Recorder keeps published events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Publish(ctx context.Context, events ...models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range events {
		r.events = append(r.events, withRequestID(ctx, ev))
	}
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Send lets a Recorder also act as a Sink.
func (r *Recorder) Send(ctx context.Context, ev models.Event) error {
	r.Publish(ctx, ev)
	return nil
}

func (r *Recorder) Name() string { return "recorder" }
