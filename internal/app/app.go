// Package app wires the POS services together over a store, a catalog and an event publisher.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-pos/internal/catalog"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/kitchen"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/services/table"
	"restaurant-pos/internal/services/tracking"
	"restaurant-pos/internal/store"
)

// Deps are the collaborators every service shares.
type Deps struct {
	Store          store.Store
	Catalog        catalog.Gateway
	Publisher      events.Publisher
	Logger         *logger.Logger
	Location       *time.Location
	DefaultStation models.Station
}

// App holds the wired services
type App struct {
	Store    store.Store
	Tables   *table.Manager
	Orders   *order.Service
	Kitchen  *kitchen.Router
	Tracking *tracking.Service
}

// New builds the services from deps.
func New(d Deps) *App {
	tables := table.NewManager(d.Store, d.Publisher, d.Logger)
	router := kitchen.NewRouter(d.Store, d.Publisher, d.Logger, d.Location, d.DefaultStation)
	orders := order.NewService(d.Store, d.Catalog, tables, router, d.Publisher, d.Logger, d.Location, d.DefaultStation)

	return &App{
		Store:    d.Store,
		Tables:   tables,
		Orders:   orders,
		Kitchen:  router,
		Tracking: tracking.NewService(d.Store, d.Logger),
	}
}

// SetClock points every service at the same time source.
func (a *App) SetClock(now func() time.Time) {
	a.Tables.SetClock(now)
	a.Orders.SetClock(now)
	a.Kitchen.SetClock(now)
}

// Seed loads the floor plan and coupons into st. Existing tables are left untouched.
func Seed(ctx context.Context, st store.Store, tables []models.Table, coupons []models.Coupon) error {
	return st.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := range tables {
			tbl := tables[i]
			if tbl.Status == "" {
				tbl.Status = models.TableAvailable
			}
			if err := tx.InsertTable(ctx, &tbl); err != nil && !errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("failed to seed table %s: %w", tbl.ID, err)
			}
		}
		for i := range coupons {
			if err := tx.UpsertCoupon(ctx, &coupons[i]); err != nil {
				return fmt.Errorf("failed to seed coupon %s: %w", coupons[i].Code, err)
			}
		}
		return nil
	})
}
