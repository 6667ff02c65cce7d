// Package order owns the order lifecycle: pricing a new order, its status
// state machine and the audit trail of every transition.
package order

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
	"restaurant-pos/internal/catalog"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/pricing"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/telemetry"
)

const maxCodeAttempts = 5

// SessionLedger keeps table session totals in step with dine-in orders.
type SessionLedger interface {
	AttachOrderTx(ctx context.Context, tx store.Tx, sessionID string, o *models.Order) error
	DetachOrderTx(ctx context.Context, tx store.Tx, o *models.Order) error
}

// TicketRouter turns orders into station tickets.
type TicketRouter interface {
	FanoutTx(ctx context.Context, tx store.Tx, o *models.Order) ([]models.Event, error)
	CancelOpenTx(ctx context.Context, tx store.Tx, orderID string, actorID *string) ([]models.Event, error)
}

// Details is an order together with its kitchen tickets.
type Details struct {
	models.Order
	Tickets []models.KitchenTicket `json:"tickets"`
}

// Service handles order creation and status changes
type Service struct {
	store          store.Store
	catalog        catalog.Gateway
	sessions       SessionLedger
	router         TicketRouter
	publisher      events.Publisher
	logger         *logger.Logger
	tracer         trace.Tracer
	location       *time.Location
	defaultStation models.Station
	now            func() time.Time
	newCode        func() (string, error)
}

// NewService creates a new order service.
// Promotion windows are evaluated in loc; products without a station go to defaultStation.
func NewService(st store.Store, gw catalog.Gateway, sessions SessionLedger, router TicketRouter,
	publisher events.Publisher, log *logger.Logger, loc *time.Location, defaultStation models.Station) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:          st,
		catalog:        gw,
		sessions:       sessions,
		router:         router,
		publisher:      publisher,
		logger:         log,
		tracer:         telemetry.Tracer("order"),
		location:       loc,
		defaultStation: defaultStation,
		now:            time.Now,
		newCode:        NewPublicCode,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetCodeGenerator replaces the public code generator. Used by tests.
func (s *Service) SetCodeGenerator(gen func() (string, error)) {
	s.newCode = gen
}

// Create prices the requested items and stores the order, its first history
// entry, its session attachment and its kitchen tickets in one unit of work.
func (s *Service) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create", trace.WithAttributes(attribute.String("order.take_mode", string(req.TakeMode))))
	defer span.End()
	requestID := logger.RequestID(ctx)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	items, subtotal, err := s.priceItems(ctx, req.Items, now.In(s.location))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o := &models.Order{
		ID:             uuid.NewString(),
		TableSessionID: req.TableSessionID,
		BranchID:       req.BranchID,
		Channel:        strings.TrimSpace(req.Channel),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Phone:          strings.TrimSpace(req.Phone),
		TakeMode:       req.TakeMode,
		Address:        req.Address,
		ScheduledAt:    req.ScheduledAt,
		Note:           req.Note,
		SubtotalCents:  subtotal,
		TipCents:       req.TipCents,
		Status:         models.OrderCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	o.Items = items

	var out []models.Event
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		discount := req.DiscountCents
		if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
			coupon, off, err := s.redeemCoupon(ctx, tx, strings.TrimSpace(*req.CouponCode), subtotal, now)
			if err != nil {
				return err
			}
			o.CouponID = &coupon.ID
			discount += off
		}
		o.DiscountCents, o.TotalCents = pricing.Totals(subtotal, discount, o.TipCents)

		if err := s.insertWithCode(ctx, tx, o); err != nil {
			return err
		}
		if err := tx.AppendOrderHistory(ctx, newHistory(o.ID, models.OrderCreated, req.ActorID, now)); err != nil {
			return fmt.Errorf("failed to append order history: %w", err)
		}

		if o.TakeMode == models.DineIn {
			if err := s.sessions.AttachOrderTx(ctx, tx, *o.TableSessionID, o); err != nil {
				return err
			}
		}

		out = append(out, models.NewOrderCreatedEvent(o, now))
		ticketEvents, err := s.router.FanoutTx(ctx, tx, o)
		if err != nil {
			return err
		}
		out = append(out, ticketEvents...)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publisher.Publish(ctx, out...)
	s.logger.Info("order_created", fmt.Sprintf("Order %s created", o.PublicCode), requestID, map[string]interface{}{
		"order_id":    o.ID,
		"public_code": o.PublicCode,
		"take_mode":   string(o.TakeMode),
		"items":       len(o.Items),
		"total_cents": o.TotalCents,
	})
	return o, nil
}

// priceItems quotes every requested line against the catalog.
func (s *Service) priceItems(ctx context.Context, reqItems []models.CreateOrderItem, local time.Time) ([]models.OrderItem, int64, error) {
	promos, err := s.catalog.CurrentPromotions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load promotions: %w", err)
	}

	items := make([]models.OrderItem, 0, len(reqItems))
	var subtotal int64
	for i, ri := range reqItems {
		var item models.OrderItem
		if ri.ComboID != nil {
			item, err = s.priceCombo(ctx, i, ri)
		} else {
			item, err = s.priceProduct(ctx, i, ri, promos, local)
		}
		if err != nil {
			return nil, 0, err
		}
		item.ID = uuid.NewString()
		item.Qty = ri.Qty
		item.Snapshot.Note = strings.TrimSpace(ri.Note)
		subtotal += item.LineTotalCents
		items = append(items, item)
	}
	return items, subtotal, nil
}

func (s *Service) priceProduct(ctx context.Context, idx int, ri models.CreateOrderItem, promos models.Promotions, local time.Time) (models.OrderItem, error) {
	p, err := s.catalog.Product(ctx, *ri.ProductID)
	if err != nil {
		return models.OrderItem{}, catalogError(err, fmt.Sprintf("items[%d].product_id", idx), "product")
	}

	line, err := pricing.QuoteProduct(p, ri.Selections(), promos, local)
	if err != nil {
		return models.OrderItem{}, err
	}

	return models.OrderItem{
		ProductID:           &p.ID,
		NameSnapshot:        p.Name,
		UnitPriceCents:      line.UnitPriceCents,
		ModifiersTotalCents: line.ModifiersTotalCents,
		LineTotalCents:      line.LineTotalCents,
		Station:             s.stationFor(p.Station),
		Snapshot:            line.Snapshot,
	}, nil
}

func (s *Service) priceCombo(ctx context.Context, idx int, ri models.CreateOrderItem) (models.OrderItem, error) {
	field := fmt.Sprintf("items[%d].combo_id", idx)
	c, err := s.catalog.Combo(ctx, *ri.ComboID)
	if err != nil {
		return models.OrderItem{}, catalogError(err, field, "combo")
	}

	components := make(map[string]*models.Product, len(c.Components))
	for _, comp := range c.Components {
		p, err := s.catalog.Product(ctx, comp.ProductID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				return models.OrderItem{}, apperr.New(apperr.CodeInvalidConfiguration, "combo %s contains unavailable product %s", c.ID, comp.ProductID)
			}
			return models.OrderItem{}, fmt.Errorf("failed to load combo component: %w", err)
		}
		components[p.ID] = p
	}

	line, savings := pricing.QuoteCombo(c, components, ri.Qty)
	for i := range line.Snapshot.ComboComponents {
		ref := &line.Snapshot.ComboComponents[i]
		ref.Station = s.stationFor(ref.Station)
	}
	s.logger.Debug("combo_priced", fmt.Sprintf("Combo %s priced", c.Name), logger.RequestID(ctx), map[string]interface{}{
		"combo_id":      c.ID,
		"savings_cents": savings * int64(ri.Qty),
	})

	return models.OrderItem{
		ComboID:        &c.ID,
		NameSnapshot:   c.Name,
		UnitPriceCents: line.UnitPriceCents,
		LineTotalCents: line.LineTotalCents,
		Station:        s.defaultStation,
		Snapshot:       line.Snapshot,
	}, nil
}

func (s *Service) stationFor(st models.Station) models.Station {
	if st == "" || !st.Valid() {
		return s.defaultStation
	}
	return st
}

// redeemCoupon validates the coupon and counts one use of it.
func (s *Service) redeemCoupon(ctx context.Context, tx store.Tx, code string, subtotal int64, now time.Time) (*models.Coupon, int64, error) {
	coupon, err := tx.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, apperr.New(apperr.CodeCouponInvalid, "coupon %s does not exist", code)
		}
		return nil, 0, fmt.Errorf("failed to load coupon: %w", err)
	}
	if err := pricing.CheckCoupon(coupon, now); err != nil {
		return nil, 0, err
	}
	if err := tx.RedeemCoupon(ctx, coupon.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, 0, apperr.Wrap(apperr.CodeCouponExhausted, err, "coupon usage limit reached")
		}
		return nil, 0, fmt.Errorf("failed to redeem coupon: %w", err)
	}
	return coupon, pricing.CouponDiscount(coupon, subtotal), nil
}

// insertWithCode stores the order, drawing a new public code on collision.
func (s *Service) insertWithCode(ctx context.Context, tx store.Tx, o *models.Order) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return fmt.Errorf("failed to generate public code: %w", err)
		}
		o.PublicCode = code

		err = tx.InsertOrder(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		s.logger.Warn("public_code_collision", "Public code already taken, retrying", logger.RequestID(ctx), map[string]interface{}{
			"attempt": attempt,
		})
	}
	return fmt.Errorf("failed to allocate a unique public code after %d attempts", maxCodeAttempts)
}

// AdvanceStatus moves an order to the next status of the canonical chain, or cancels it.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, req models.UpdateStatusRequest) (*models.Order, error) {
	next, ok := parseStatus(req.Status)
	if !ok {
		return nil, apperr.Validation("status", "must be one of: CREATED, CONFIRMED, IN_PREP, READY, DELIVERED, CANCELLED")
	}
	if next == models.OrderCancelled {
		return s.Cancel(ctx, orderID, req.ActorID)
	}

	ctx, span := s.tracer.Start(ctx, "order.advance_status", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(next)),
	))
	defer span.End()

	var (
		o  *models.Order
		ev models.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if o, err = lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return apperr.Transition("order", string(o.Status), string(next))
		}
		ev, err = TransitionTx(ctx, tx, o, next, req.ActorID, s.now().UTC())
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publisher.Publish(ctx, ev)
	s.logger.Info("order_status_changed", fmt.Sprintf("Order %s moved to %s", o.PublicCode, next), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   o.ID,
		"old_status": ev.OldStatus,
		"new_status": ev.NewStatus,
	})
	return o, nil
}

// Cancel aborts an order that has not reached READY, cancels its open
// tickets and releases its amount from an open table session.
func (s *Service) Cancel(ctx context.Context, orderID string, actorID *string) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	var (
		o   *models.Order
		out []models.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if o, err = lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(models.OrderCancelled) {
			return apperr.Transition("order", string(o.Status), string(models.OrderCancelled))
		}

		now := s.now().UTC()
		ev, err := TransitionTx(ctx, tx, o, models.OrderCancelled, actorID, now)
		if err != nil {
			return err
		}
		out = append(out, ev)

		ticketEvents, err := s.router.CancelOpenTx(ctx, tx, o.ID, actorID)
		if err != nil {
			return err
		}
		out = append(out, ticketEvents...)

		return s.sessions.DetachOrderTx(ctx, tx, o)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publisher.Publish(ctx, out...)
	s.logger.Info("order_cancelled", fmt.Sprintf("Order %s cancelled", o.PublicCode), logger.RequestID(ctx), map[string]interface{}{
		"order_id":          o.ID,
		"cancelled_tickets": len(out) - 1,
	})
	return o, nil
}

// Delete removes an order with its items, history and tickets.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "order.delete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderCancelled {
			if err := s.sessions.DetachOrderTx(ctx, tx, o); err != nil {
				return err
			}
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.Info("order_deleted", "Order deleted", logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
	})
	return nil
}

// Get returns the order with items, history and tickets.
func (s *Service) Get(ctx context.Context, orderID string) (*Details, error) {
	var d *Details
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("order", orderID)
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		tickets, err := tx.ListOrderTickets(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load tickets: %w", err)
		}
		d = &Details{Order: *o, Tickets: tickets}
		return nil
	})
	return d, err
}

// TransitionTx records a status change of o inside the caller's unit of work.
// The caller must hold the order lock and has already checked the transition.
func TransitionTx(ctx context.Context, tx store.Tx, o *models.Order, next models.OrderStatus, actorID *string, at time.Time) (models.Event, error) {
	old := o.Status
	if err := tx.UpdateOrderStatus(ctx, o.ID, next, at); err != nil {
		return models.Event{}, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := tx.AppendOrderHistory(ctx, newHistory(o.ID, next, actorID, at)); err != nil {
		return models.Event{}, fmt.Errorf("failed to append order history: %w", err)
	}
	o.Status = next
	o.UpdatedAt = at
	return models.NewOrderStatusChangedEvent(o, old, actorID, at), nil
}

func newHistory(orderID string, status models.OrderStatus, actorID *string, at time.Time) *models.OrderStatusHistory {
	return &models.OrderStatusHistory{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		Status:          status,
		ChangedByUserID: actorID,
		ChangedAt:       at,
	}
}

func lockOrder(ctx context.Context, tx store.Tx, orderID string) (*models.Order, error) {
	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return o, nil
}

func parseStatus(v string) (models.OrderStatus, bool) {
	st := models.OrderStatus(strings.ToUpper(strings.TrimSpace(v)))
	return st, st.Valid()
}

// catalogError turns a catalog miss into a validation error on field.
func catalogError(err error, field, entity string) error {
	if apperr.CodeOf(err) == apperr.CodeNotFound {
		return apperr.Validation(field, fmt.Sprintf("unknown or inactive %s", entity))
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
