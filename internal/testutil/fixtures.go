// Package testutil builds a fully wired POS over the in-memory store for service and API tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/app"
	"restaurant-pos/internal/catalog"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
)

// Now is the fixed clock of every Env: a Wednesday evening.
var Now = time.Date(2024, 6, 5, 19, 30, 0, 0, time.UTC)

// Catalog ids used by the fixture menu.
const (
	Burger     = "burger"
	Fries      = "fries"
	Cola       = "cola"
	Brownie    = "brownie"
	Bread      = "bread"
	BurgerMeal = "burger-meal"

	Table1 = "t1"
	Table2 = "t2"
)

// Menu returns the fixture menu. Bread sits in a category with no station.
func Menu() catalog.Menu {
	return catalog.Menu{
		Categories: []models.Category{
			{ID: "mains", Name: "Mains", Station: models.StationKitchen},
			{ID: "grill", Name: "Grill", Station: models.StationGrill},
			{ID: "drinks", Name: "Drinks", Station: models.StationBar},
			{ID: "desserts", Name: "Desserts", Station: models.StationDesserts},
			{ID: "extras", Name: "Extras"},
		},
		Products: []models.Product{
			{
				ID: Burger, Name: "Burger", CategoryID: "grill", BasePriceCents: 1000, DoublePriceCents: Ptr(int64(1500)), IsActive: true,
				Modifiers: []models.Modifier{
					{ID: "cheese", Name: "Cheese", PriceDeltaCents: 200},
					{ID: "bacon", Name: "Bacon", PriceDeltaCents: 300},
				},
			},
			{ID: Fries, Name: "Fries", CategoryID: "mains", BasePriceCents: 400, IsActive: true},
			{ID: Cola, Name: "Cola", CategoryID: "drinks", BasePriceCents: 300, IsActive: true},
			{ID: Brownie, Name: "Brownie", CategoryID: "desserts", BasePriceCents: 500, IsActive: true},
			{ID: Bread, Name: "Bread", CategoryID: "extras", BasePriceCents: 200, IsActive: true},
		},
		Combos: []models.Combo{
			{
				ID: BurgerMeal, Name: "Burger Meal", ListedPriceCents: 1500, IsActive: true,
				Components: []models.ComboComponent{
					{ProductID: Burger, Qty: 1},
					{ProductID: Fries, Qty: 1},
					{ProductID: Cola, Qty: 1},
				},
			},
		},
		Coupons: []models.Coupon{
			{ID: "c1", Code: "TENOFF", PercentOff: Ptr(10), IsActive: true},
			{ID: "c2", Code: "ONCE", AmountOffCents: Ptr(int64(500)), MaxUses: Ptr(1), IsActive: true},
			{ID: "c3", Code: "OLD", PercentOff: Ptr(50), ValidUntil: Ptr(Now.Add(-24 * time.Hour)), IsActive: true},
		},
		Tables: []models.Table{
			{ID: Table1, Name: "1", Capacity: 4, SortOrder: 1, IsActive: true, Status: models.TableAvailable},
			{ID: Table2, Name: "2", Capacity: 2, SortOrder: 2, IsActive: true, Status: models.TableAvailable},
		},
	}
}

// Env is a wired POS with a recorder in place of the event bus
type Env struct {
	*app.App
	Store   *memory.Store
	Events  *events.Recorder
	Catalog *catalog.Static
}

// NewEnv builds an Env from menu. A zero menu uses Menu().
func NewEnv(t *testing.T, menu ...catalog.Menu) *Env {
	t.Helper()
	m := Menu()
	if len(menu) > 0 {
		m = menu[0]
	}
	return newEnv(t, m, nil)
}

// NewEnvWithStore builds an Env over Menu() whose services see the memory
// store through wrap. Env.Store stays the unwrapped store.
func NewEnvWithStore(t *testing.T, wrap func(store.Store) store.Store) *Env {
	t.Helper()
	return newEnv(t, Menu(), wrap)
}

func newEnv(t *testing.T, m catalog.Menu, wrap func(store.Store) store.Store) *Env {
	t.Helper()
	cat, err := catalog.NewStatic(m)
	require.NoError(t, err)

	st := memory.New()
	require.NoError(t, app.Seed(context.Background(), st, cat.Tables(), cat.Coupons()))

	var served store.Store = st
	if wrap != nil {
		served = wrap(st)
	}

	rec := &events.Recorder{}
	a := app.New(app.Deps{
		Store:          served,
		Catalog:        cat,
		Publisher:      rec,
		Logger:         logger.Discard(),
		Location:       time.UTC,
		DefaultStation: models.StationKitchen,
	})
	a.SetClock(func() time.Time { return Now })

	return &Env{App: a, Store: st, Events: rec, Catalog: cat}
}

// OpenSession seats guests at tableID and returns the session id.
func (e *Env) OpenSession(t *testing.T, tableID string, guests int) string {
	t.Helper()
	sess, err := e.Tables.OpenSession(context.Background(), tableID, models.OpenSessionRequest{GuestCount: guests})
	require.NoError(t, err)
	return sess.ID
}

// ProductLine builds a request line for qty units of productID.
func ProductLine(productID string, qty int) models.CreateOrderItem {
	return models.CreateOrderItem{ProductID: Ptr(productID), Qty: qty}
}

// ComboLine builds a request line for qty combos.
func ComboLine(comboID string, qty int) models.CreateOrderItem {
	return models.CreateOrderItem{ComboID: Ptr(comboID), Qty: qty}
}

// Takeaway builds a takeaway order request.
func Takeaway(items ...models.CreateOrderItem) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{TakeMode: models.Takeaway, CustomerName: "Ada", Items: items}
}

// DineIn builds a dine-in order request for sessionID.
func DineIn(sessionID string, items ...models.CreateOrderItem) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{TakeMode: models.DineIn, TableSessionID: Ptr(sessionID), Items: items}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
