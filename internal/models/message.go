package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event. It doubles as the AMQP routing key.
type EventType string

const (
	EventOrderCreated        EventType = "order.created"
	EventOrderStatusChanged  EventType = "order.status_changed"
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventSessionOpened       EventType = "session.opened"
	EventSessionClosed       EventType = "session.closed"
	EventTableStatusChanged  EventType = "table.status_changed"
)

// Event is the message published after a state change commits
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RequestID    string    `json:"request_id,omitempty"`
	OrderID      string    `json:"order_id,omitempty"`
	PublicCode   string    `json:"public_code,omitempty"`
	TicketID     string    `json:"ticket_id,omitempty"`
	TicketNumber int       `json:"ticket_number,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	TableID      string    `json:"table_id,omitempty"`
	Station      Station   `json:"station,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	OldStatus    string    `json:"old_status,omitempty"`
	NewStatus    string    `json:"new_status,omitempty"`
	TotalCents   int64     `json:"total_cents,omitempty"`
}

// EntityID returns the id of the entity the event is about, used as a partition key.
func (e Event) EntityID() string {
	switch {
	case e.TicketID != "":
		return e.TicketID
	case e.OrderID != "":
		return e.OrderID
	case e.SessionID != "":
		return e.SessionID
	default:
		return e.TableID
	}
}

func newEvent(t EventType, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

func actor(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// NewOrderCreatedEvent creates an OrderCreated event
func NewOrderCreatedEvent(o *Order, at time.Time) Event {
	e := newEvent(EventOrderCreated, at)
	e.OrderID = o.ID
	e.PublicCode = o.PublicCode
	e.NewStatus = string(o.Status)
	e.TotalCents = o.TotalCents
	if o.TableSessionID != nil {
		e.SessionID = *o.TableSessionID
	}
	return e
}

// NewOrderStatusChangedEvent creates an OrderStatusChanged event
func NewOrderStatusChangedEvent(o *Order, old OrderStatus, actorID *string, at time.Time) Event {
	e := newEvent(EventOrderStatusChanged, at)
	e.OrderID = o.ID
	e.PublicCode = o.PublicCode
	e.OldStatus = string(old)
	e.NewStatus = string(o.Status)
	e.ActorID = actor(actorID)
	return e
}

// NewTicketCreatedEvent creates a TicketCreated event
func NewTicketCreatedEvent(t *KitchenTicket, at time.Time) Event {
	e := newEvent(EventTicketCreated, at)
	e.OrderID = t.OrderID
	e.TicketID = t.ID
	e.TicketNumber = t.TicketNumber
	e.Station = t.Station
	e.NewStatus = string(t.Status)
	return e
}

// NewTicketStatusChangedEvent creates a TicketStatusChanged event
func NewTicketStatusChangedEvent(t *KitchenTicket, old TicketStatus, actorID *string, at time.Time) Event {
	e := newEvent(EventTicketStatusChanged, at)
	e.OrderID = t.OrderID
	e.TicketID = t.ID
	e.TicketNumber = t.TicketNumber
	e.Station = t.Station
	e.OldStatus = string(old)
	e.NewStatus = string(t.Status)
	e.ActorID = actor(actorID)
	return e
}

// NewSessionOpenedEvent creates a SessionOpened event
func NewSessionOpenedEvent(s *TableSession, at time.Time) Event {
	e := newEvent(EventSessionOpened, at)
	e.SessionID = s.ID
	e.TableID = s.TableID
	e.ActorID = actor(s.AssignedWaiterID)
	return e
}

// NewSessionClosedEvent creates a SessionClosed event
func NewSessionClosedEvent(s *TableSession, actorID *string, at time.Time) Event {
	e := newEvent(EventSessionClosed, at)
	e.SessionID = s.ID
	e.TableID = s.TableID
	e.TotalCents = s.TotalCents
	e.ActorID = actor(actorID)
	return e
}

// NewTableStatusChangedEvent creates a TableStatusChanged event
func NewTableStatusChangedEvent(t *Table, old TableStatus, at time.Time) Event {
	e := newEvent(EventTableStatusChanged, at)
	e.TableID = t.ID
	e.OldStatus = string(old)
	e.NewStatus = string(t.Status)
	return e
}
