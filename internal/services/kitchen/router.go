// Package kitchen splits orders into per-station production tickets and
// drives the ticket lifecycle, rolling ticket progress up into the order.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/telemetry"
)

// openStatuses are the ticket states shown on a station display.
var openStatuses = []models.TicketStatus{models.TicketPending, models.TicketInProgress, models.TicketReady}

// Router creates and advances kitchen tickets
type Router struct {
	store          store.Store
	publisher      events.Publisher
	logger         *logger.Logger
	tracer         trace.Tracer
	location       *time.Location
	defaultStation models.Station
	now            func() time.Time
}

// NewRouter creates a new ticket router.
// Ticket numbers restart every day in loc.
func NewRouter(st store.Store, publisher events.Publisher, log *logger.Logger, loc *time.Location, defaultStation models.Station) *Router {
	if loc == nil {
		loc = time.UTC
	}
	if !defaultStation.Valid() {
		defaultStation = models.StationKitchen
	}
	return &Router{
		store:          st,
		publisher:      publisher,
		logger:         log,
		tracer:         telemetry.Tracer("kitchen"),
		location:       loc,
		defaultStation: defaultStation,
		now:            time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// FanoutTx creates one ticket per station present in the order.
// Combo lines send each component to its own station.
func (r *Router) FanoutTx(ctx context.Context, tx store.Tx, o *models.Order) ([]models.Event, error) {
	byStation := make(map[models.Station][]models.TicketItem)
	for _, item := range o.Items {
		for station, ti := range r.split(item) {
			byStation[station] = append(byStation[station], ti...)
		}
	}

	now := r.now().UTC()
	day := now.In(r.location).Format(models.TicketDayLayout)

	var out []models.Event
	for _, station := range models.Stations {
		items, ok := byStation[station]
		if !ok {
			continue
		}

		number, err := tx.NextTicketNumber(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate ticket number: %w", err)
		}
		tk := &models.KitchenTicket{
			ID:           uuid.NewString(),
			OrderID:      o.ID,
			Station:      station,
			Status:       models.TicketPending,
			TicketDay:    day,
			TicketNumber: number,
			CreatedAt:    now,
			Items:        items,
			Notes:        o.Note,
		}
		if err := tx.InsertTicket(ctx, tk); err != nil {
			return nil, fmt.Errorf("failed to insert ticket: %w", err)
		}
		out = append(out, models.NewTicketCreatedEvent(tk, now))

		r.logger.Debug("ticket_created", fmt.Sprintf("Ticket #%d for %s", number, station), logger.RequestID(ctx), map[string]interface{}{
			"order_id":  o.ID,
			"ticket_id": tk.ID,
			"items":     len(items),
		})
	}
	return out, nil
}

// split maps one order line to the ticket items each station has to produce.
func (r *Router) split(item models.OrderItem) map[models.Station][]models.TicketItem {
	out := make(map[models.Station][]models.TicketItem)
	snap := item.Snapshot

	switch {
	case len(snap.ComboComponents) > 0:
		for _, comp := range snap.ComboComponents {
			st := r.station(comp.Station)
			out[st] = append(out[st], models.TicketItem{
				OrderItemID: item.ID,
				Name:        comp.Name,
				Qty:         comp.Qty * item.Qty,
				ComboName:   item.NameSnapshot,
				Note:        snap.Note,
			})
		}
	case len(snap.Units) > 0:
		st := r.station(item.Station)
		for _, u := range snap.Units {
			out[st] = append(out[st], models.TicketItem{
				OrderItemID: item.ID,
				Name:        item.NameSnapshot,
				Qty:         1,
				Size:        u.Size,
				Modifiers:   u.Modifiers,
				Note:        snap.Note,
			})
		}
	default:
		st := r.station(item.Station)
		out[st] = append(out[st], models.TicketItem{
			OrderItemID: item.ID,
			Name:        item.NameSnapshot,
			Qty:         item.Qty,
			Size:        snap.Size,
			Modifiers:   snap.Modifiers,
			Note:        snap.Note,
		})
	}
	return out
}

func (r *Router) station(s models.Station) models.Station {
	if s.Valid() {
		return s
	}
	return r.defaultStation
}

// CancelOpenTx cancels every ticket of the order that has not been delivered.
func (r *Router) CancelOpenTx(ctx context.Context, tx store.Tx, orderID string, actorID *string) ([]models.Event, error) {
	tickets, err := tx.ListOrderTickets(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	now := r.now().UTC()
	var out []models.Event
	for i := range tickets {
		tk := &tickets[i]
		if !tk.Status.Open() {
			continue
		}
		old := tk.Status
		tk.Status = models.TicketCancelled
		tk.CancelledAt = &now
		if err := tx.UpdateTicket(ctx, tk); err != nil {
			return nil, fmt.Errorf("failed to cancel ticket: %w", err)
		}
		out = append(out, models.NewTicketStatusChangedEvent(tk, old, actorID, now))
	}
	return out, nil
}

// AdvanceTicket moves a ticket one step along PENDING, IN_PROGRESS, READY,
// DELIVERED and rolls the result up into the parent order.
func (r *Router) AdvanceTicket(ctx context.Context, ticketID string, req models.UpdateStatusRequest) (*models.KitchenTicket, error) {
	next := models.TicketStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if next.Rank() < 0 && next != models.TicketCancelled {
		return nil, apperr.Validation("status", "must be one of: PENDING, IN_PROGRESS, READY, DELIVERED")
	}

	ctx, span := r.tracer.Start(ctx, "kitchen.advance_ticket", trace.WithAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("ticket.status", string(next)),
	))
	defer span.End()

	var (
		tk  *models.KitchenTicket
		out []models.Event
	)
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		first, err := getTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		o, err := tx.LockOrder(ctx, first.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		// Re-read under the order lock so concurrent station updates serialize.
		if tk, err = getTicket(ctx, tx, ticketID); err != nil {
			return err
		}

		if want, ok := tk.Status.Next(); !ok || want != next {
			return apperr.Transition("ticket", string(tk.Status), string(next))
		}

		now := r.now().UTC()
		old := tk.Status
		stamp(tk, next, req.ActorID, now)
		if err := tx.UpdateTicket(ctx, tk); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		out = append(out, models.NewTicketStatusChangedEvent(tk, old, req.ActorID, now))

		rolled, err := rollUp(ctx, tx, o, req.ActorID, now)
		if err != nil {
			return err
		}
		out = append(out, rolled...)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.publisher.Publish(ctx, out...)
	r.logger.Info("ticket_status_changed", fmt.Sprintf("Ticket #%d at %s is %s", tk.TicketNumber, tk.Station, tk.Status), logger.RequestID(ctx), map[string]interface{}{
		"ticket_id": tk.ID,
		"order_id":  tk.OrderID,
		"station":   string(tk.Station),
	})
	return tk, nil
}

// stamp sets the status and fills each milestone timestamp only once.
func stamp(tk *models.KitchenTicket, next models.TicketStatus, actorID *string, now time.Time) {
	tk.Status = next
	switch next {
	case models.TicketInProgress:
		if tk.StartedAt == nil {
			tk.StartedAt = &now
		}
		if tk.AssignedToUserID == nil && actorID != nil {
			tk.AssignedToUserID = actorID
		}
	case models.TicketReady:
		if tk.ReadyAt == nil {
			tk.ReadyAt = &now
		}
	case models.TicketDelivered:
		if tk.DeliveredAt == nil {
			tk.DeliveredAt = &now
		}
	}
}

// rollUp walks the locked order forward, one canonical step at a time, to
// the status its tickets imply. It never moves an order backwards and leaves
// cancelled orders alone.
func rollUp(ctx context.Context, tx store.Tx, o *models.Order, actorID *string, now time.Time) ([]models.Event, error) {
	if o.Status == models.OrderCancelled {
		return nil, nil
	}

	tickets, err := tx.ListOrderTickets(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	statuses := make([]models.TicketStatus, len(tickets))
	for i, t := range tickets {
		statuses[i] = t.Status
	}

	target, ok := DeriveOrderStatus(statuses)
	if !ok {
		return nil, nil
	}

	var out []models.Event
	for o.Status.Rank() < target.Rank() {
		next, _ := o.Status.Next()
		ev, err := order.TransitionTx(ctx, tx, o, next, actorID, now)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// OrderTickets returns the tickets of an order.
func (r *Router) OrderTickets(ctx context.Context, orderID string) ([]models.KitchenTicket, error) {
	var tickets []models.KitchenTicket
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("order", orderID)
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		var err error
		tickets, err = tx.ListOrderTickets(ctx, orderID)
		return err
	})
	return tickets, err
}

// StationQueue returns the open tickets of a station, oldest first.
func (r *Router) StationQueue(ctx context.Context, station string) ([]models.KitchenTicket, error) {
	st, ok := models.ParseStation(station)
	if !ok {
		return nil, apperr.Validation("station", "must be one of: KITCHEN, BAR, GRILL, DESSERTS")
	}

	var tickets []models.KitchenTicket
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		tickets, err = tx.ListStationTickets(ctx, st, openStatuses)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list station tickets: %w", err)
	}
	return tickets, nil
}

func getTicket(ctx context.Context, tx store.Tx, id string) (*models.KitchenTicket, error) {
	tk, err := tx.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("ticket", id)
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return tk, nil
}
