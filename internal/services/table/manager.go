// Package table owns the floor plan: table status and the lifecycle of
// table sessions, from seating guests to settling the bill.
package table

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
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/telemetry"
)

// Manager serializes every session mutation on the table row
type Manager struct {
	store     store.Store
	publisher events.Publisher
	logger    *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewManager creates a new table session manager
func NewManager(st store.Store, publisher events.Publisher, log *logger.Logger) *Manager {
	return &Manager{
		store:     st,
		publisher: publisher,
		logger:    log,
		tracer:    telemetry.Tracer("table"),
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// ListTables returns the floor plan ordered by sort order.
func (m *Manager) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		tables, err = tx.ListTables(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// GetTable returns a single table.
func (m *Manager) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var tbl *models.Table
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		tbl, err = tx.GetTable(ctx, id)
		return notFound(err, "table", id)
	})
	return tbl, err
}

// GetSession returns the session with its attached orders.
func (m *Manager) GetSession(ctx context.Context, id string) (*models.TableSession, error) {
	var sess *models.TableSession
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if sess, err = tx.GetSession(ctx, id); err != nil {
			return notFound(err, "session", id)
		}
		sess.Orders, err = tx.ListSessionOrders(ctx, id)
		return err
	})
	return sess, err
}

// OpenSession seats guests at a table and marks it occupied.
func (m *Manager) OpenSession(ctx context.Context, tableID string, req models.OpenSessionRequest) (*models.TableSession, error) {
	ctx, span := m.tracer.Start(ctx, "table.open_session", trace.WithAttributes(attribute.String("table.id", tableID)))
	defer span.End()

	if req.GuestCount < 1 {
		return nil, apperr.Validation("guest_count", "must be at least 1")
	}

	var (
		sess *models.TableSession
		out  []models.Event
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		tbl, err := tx.LockTable(ctx, tableID)
		if err != nil {
			return notFound(err, "table", tableID)
		}

		if _, err := tx.OpenSessionForTable(ctx, tableID); err == nil {
			return apperr.New(apperr.CodeSessionAlreadyOpen, "table %s already has an open session", tbl.Name)
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up open session: %w", err)
		}

		if !tbl.IsActive || (tbl.Status != models.TableAvailable && tbl.Status != models.TableReserved) {
			return apperr.New(apperr.CodeTableNotAvailable, "table %s is %s", tbl.Name, tbl.Status)
		}
		if req.GuestCount > tbl.Capacity {
			return apperr.Validation("guest_count", fmt.Sprintf("table %s seats at most %d guests", tbl.Name, tbl.Capacity))
		}

		now := m.now().UTC()
		sess = &models.TableSession{
			ID:               uuid.NewString(),
			TableID:          tbl.ID,
			CustomerName:     trimmed(req.CustomerName),
			GuestCount:       req.GuestCount,
			OpenedAt:         now,
			AssignedWaiterID: req.WaiterID,
			Notes:            trimmed(req.Notes),
		}
		if err := tx.InsertSession(ctx, sess); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Wrap(apperr.CodeSessionAlreadyOpen, err, "table already has an open session")
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}

		ev, err := setStatus(ctx, tx, tbl, models.TableOccupied, now)
		if err != nil {
			return err
		}
		out = append(out, models.NewSessionOpenedEvent(sess, now), ev)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.publisher.Publish(ctx, out...)
	m.logger.Info("session_opened", "Table session opened", logger.RequestID(ctx), map[string]interface{}{
		"table_id":    tableID,
		"session_id":  sess.ID,
		"guest_count": sess.GuestCount,
	})
	return sess, nil
}

// AttachOrderTx adds a dine-in order to its open session inside the caller's unit of work.
func (m *Manager) AttachOrderTx(ctx context.Context, tx store.Tx, sessionID string, o *models.Order) error {
	sess, err := m.lockSession(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Open() {
		return apperr.New(apperr.CodeSessionClosed, "session %s is closed", sessionID)
	}

	sess.SubtotalCents += o.TotalCents
	sess.TotalCents = sess.SubtotalCents + sess.TipCents
	if err := tx.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to update session totals: %w", err)
	}
	return nil
}

// DetachOrderTx removes an order's amount from its session while the session is still open.
// Closed sessions keep their settled totals.
func (m *Manager) DetachOrderTx(ctx context.Context, tx store.Tx, o *models.Order) error {
	if o.TableSessionID == nil {
		return nil
	}
	sess, err := m.lockSession(ctx, tx, *o.TableSessionID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil
		}
		return err
	}
	if !sess.Open() {
		return nil
	}

	sess.SubtotalCents -= o.TotalCents
	if sess.SubtotalCents < 0 {
		sess.SubtotalCents = 0
	}
	sess.TotalCents = sess.SubtotalCents + sess.TipCents
	if err := tx.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to update session totals: %w", err)
	}
	return nil
}

// RequestBill flags an occupied table as waiting for the bill.
func (m *Manager) RequestBill(ctx context.Context, tableID string) (*models.Table, error) {
	return m.transition(ctx, "table.request_bill", tableID, func(ctx context.Context, tx store.Tx, tbl *models.Table) (models.TableStatus, error) {
		if tbl.Status != models.TableOccupied {
			return "", apperr.Transition("table", string(tbl.Status), string(models.TableBillRequested))
		}
		return models.TableBillRequested, nil
	})
}

// Close settles the session: it sums the non-cancelled orders, records the
// tip and payment method, and frees the table.
func (m *Manager) Close(ctx context.Context, sessionID string, req models.CloseSessionRequest) (*models.TableSession, error) {
	ctx, span := m.tracer.Start(ctx, "table.close_session", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if req.TipCents < 0 {
		return nil, apperr.Validation("tip_cents", "must not be negative")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return nil, apperr.Validation("payment_method", "is required")
	}

	var (
		sess *models.TableSession
		out  []models.Event
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if sess, err = m.lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if !sess.Open() {
			return apperr.New(apperr.CodeSessionClosed, "session %s is already closed", sessionID)
		}

		orders, err := tx.ListSessionOrders(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session orders: %w", err)
		}
		var subtotal int64
		for _, o := range orders {
			if o.Status != models.OrderCancelled {
				subtotal += o.TotalCents
			}
		}

		now := m.now().UTC()
		sess.SubtotalCents = subtotal
		sess.TipCents = req.TipCents
		sess.TotalCents = subtotal + req.TipCents
		sess.PaymentMethod = &method
		sess.ClosedAt = &now
		sess.PaidAt = &now
		if err := tx.UpdateSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to close session: %w", err)
		}

		tbl, err := tx.LockTable(ctx, sess.TableID)
		if err != nil {
			return fmt.Errorf("failed to lock table: %w", err)
		}
		out = append(out, models.NewSessionClosedEvent(sess, req.ActorID, now))
		if tbl.Status != models.TableAvailable {
			ev, err := setStatus(ctx, tx, tbl, models.TableAvailable, now)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		sess.Orders = orders
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.publisher.Publish(ctx, out...)
	m.logger.Info("session_closed", "Table session closed", logger.RequestID(ctx), map[string]interface{}{
		"session_id":     sess.ID,
		"table_id":       sess.TableID,
		"total_cents":    sess.TotalCents,
		"payment_method": method,
	})
	return sess, nil
}

// Reserve holds an available table for an expected party.
func (m *Manager) Reserve(ctx context.Context, tableID string) (*models.Table, error) {
	return m.transition(ctx, "table.reserve", tableID, func(ctx context.Context, tx store.Tx, tbl *models.Table) (models.TableStatus, error) {
		if !tbl.IsActive || tbl.Status != models.TableAvailable {
			return "", apperr.New(apperr.CodeTableNotAvailable, "table %s is %s", tbl.Name, tbl.Status)
		}
		return models.TableReserved, nil
	})
}

// Release returns a reserved or out-of-service table to the floor.
func (m *Manager) Release(ctx context.Context, tableID string) (*models.Table, error) {
	return m.transition(ctx, "table.release", tableID, func(ctx context.Context, tx store.Tx, tbl *models.Table) (models.TableStatus, error) {
		if err := m.requireNoSession(ctx, tx, tbl); err != nil {
			return "", err
		}
		if tbl.Status != models.TableReserved && tbl.Status != models.TableOutOfService {
			return "", apperr.Transition("table", string(tbl.Status), string(models.TableAvailable))
		}
		return models.TableAvailable, nil
	})
}

// SetOutOfService takes an available table off the floor.
func (m *Manager) SetOutOfService(ctx context.Context, tableID string) (*models.Table, error) {
	return m.transition(ctx, "table.out_of_service", tableID, func(ctx context.Context, tx store.Tx, tbl *models.Table) (models.TableStatus, error) {
		if err := m.requireNoSession(ctx, tx, tbl); err != nil {
			return "", err
		}
		if tbl.Status != models.TableAvailable {
			return "", apperr.Transition("table", string(tbl.Status), string(models.TableOutOfService))
		}
		return models.TableOutOfService, nil
	})
}

// transition locks the table, asks decide for the target status and applies it.
func (m *Manager) transition(ctx context.Context, op, tableID string, decide func(context.Context, store.Tx, *models.Table) (models.TableStatus, error)) (*models.Table, error) {
	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("table.id", tableID)))
	defer span.End()

	var (
		tbl *models.Table
		ev  models.Event
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if tbl, err = tx.LockTable(ctx, tableID); err != nil {
			return notFound(err, "table", tableID)
		}
		next, err := decide(ctx, tx, tbl)
		if err != nil {
			return err
		}
		ev, err = setStatus(ctx, tx, tbl, next, m.now().UTC())
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.publisher.Publish(ctx, ev)
	m.logger.Info("table_status_changed", fmt.Sprintf("Table %s is now %s", tbl.Name, tbl.Status), logger.RequestID(ctx), map[string]interface{}{
		"table_id":   tbl.ID,
		"old_status": ev.OldStatus,
		"new_status": ev.NewStatus,
	})
	return tbl, nil
}

// lockSession reads the session, locks its table and re-reads the session
// so the returned row cannot change until the unit of work ends.
func (m *Manager) lockSession(ctx context.Context, tx store.Tx, sessionID string) (*models.TableSession, error) {
	sess, err := tx.GetSession(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "session", sessionID)
	}
	if _, err := tx.LockTable(ctx, sess.TableID); err != nil {
		return nil, fmt.Errorf("failed to lock table: %w", err)
	}
	sess, err = tx.GetSession(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "session", sessionID)
	}
	return sess, nil
}

// requireNoSession rejects tables that are seated, by status or by an open session row.
func (m *Manager) requireNoSession(ctx context.Context, tx store.Tx, tbl *models.Table) error {
	if tbl.Status.Seated() {
		return apperr.New(apperr.CodeTableNotAvailable, "table %s is %s", tbl.Name, tbl.Status)
	}
	_, err := tx.OpenSessionForTable(ctx, tbl.ID)
	switch {
	case err == nil:
		return apperr.New(apperr.CodeTableNotAvailable, "table %s has an open session", tbl.Name)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up open session: %w", err)
	}
}

func setStatus(ctx context.Context, tx store.Tx, tbl *models.Table, next models.TableStatus, at time.Time) (models.Event, error) {
	old := tbl.Status
	if err := tx.UpdateTableStatus(ctx, tbl.ID, next, at); err != nil {
		return models.Event{}, fmt.Errorf("failed to update table status: %w", err)
	}
	tbl.Status = next
	tbl.UpdatedAt = at
	return models.NewTableStatusChangedEvent(tbl, old, at), nil
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", entity, err)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
