// Package store defines the transactional entity store used by the POS services.
package store

import (
	"context"
	"errors"
	"time"

	"restaurant-pos/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness rule
	// (open session per table, public order code, coupon usage limit).
	ErrConflict = errors.New("record conflict")
)

// Store runs units of work. fn's writes become visible only if it returns nil.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}

// Tx is the set of repositories available inside a unit of work.
type Tx interface {
	TableRepo
	SessionRepo
	OrderRepo
	TicketRepo
	CouponRepo
}

type TableRepo interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	GetTable(ctx context.Context, id string) (*models.Table, error)
	// LockTable reads the table and holds it until the unit of work ends.
	LockTable(ctx context.Context, id string) (*models.Table, error)
	UpdateTableStatus(ctx context.Context, id string, status models.TableStatus, at time.Time) error
	// InsertTable is used for seeding the floor plan.
	InsertTable(ctx context.Context, t *models.Table) error
}

type SessionRepo interface {
	// OpenSessionForTable returns the session of tableID with no closedAt, or ErrNotFound.
	OpenSessionForTable(ctx context.Context, tableID string) (*models.TableSession, error)
	GetSession(ctx context.Context, id string) (*models.TableSession, error)
	// InsertSession returns ErrConflict if the table already has an open session.
	InsertSession(ctx context.Context, s *models.TableSession) error
	UpdateSession(ctx context.Context, s *models.TableSession) error
}

type OrderRepo interface {
	// InsertOrder stores the order with its items. ErrConflict on a duplicate public code.
	InsertOrder(ctx context.Context, o *models.Order) error
	// GetOrder returns the order with items and history.
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPublicCode(ctx context.Context, code string) (*models.Order, error)
	// LockOrder reads the order row (without items) and holds it until the unit of work ends.
	LockOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	AppendOrderHistory(ctx context.Context, h *models.OrderStatusHistory) error
	ListSessionOrders(ctx context.Context, sessionID string) ([]models.Order, error)
	// DeleteOrder removes the order, its items, history and tickets.
	DeleteOrder(ctx context.Context, id string) error
}

type TicketRepo interface {
	// NextTicketNumber atomically increments and returns the counter for day.
	NextTicketNumber(ctx context.Context, day string) (int, error)
	InsertTicket(ctx context.Context, t *models.KitchenTicket) error
	GetTicket(ctx context.Context, id string) (*models.KitchenTicket, error)
	UpdateTicket(ctx context.Context, t *models.KitchenTicket) error
	ListOrderTickets(ctx context.Context, orderID string) ([]models.KitchenTicket, error)
	// ListStationTickets returns tickets of station in any of statuses, oldest first.
	ListStationTickets(ctx context.Context, station models.Station, statuses []models.TicketStatus) ([]models.KitchenTicket, error)
}

type CouponRepo interface {
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	// RedeemCoupon increments usedCount unless maxUses is reached, in which case it returns ErrConflict.
	RedeemCoupon(ctx context.Context, id string) error
	UpsertCoupon(ctx context.Context, c *models.Coupon) error
}
