// Package memory is an in-process Store. Units of work are serialized by a
// single mutex and applied to a copy of the state that replaces the original on success.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

type state struct {
	tables   map[string]models.Table
	sessions map[string]models.TableSession
	orders   map[string]models.Order
	history  map[string][]models.OrderStatusHistory
	tickets  map[string]models.KitchenTicket
	counters map[string]int
	coupons  map[string]models.Coupon
}

func newState() *state {
	return &state{
		tables:   make(map[string]models.Table),
		sessions: make(map[string]models.TableSession),
		orders:   make(map[string]models.Order),
		history:  make(map[string][]models.OrderStatusHistory),
		tickets:  make(map[string]models.KitchenTicket),
		counters: make(map[string]int),
		coupons:  make(map[string]models.Coupon),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([]models.OrderStatusHistory(nil), v...)
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	return c
}

// Store keeps all entities in memory
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := &tx{st: s.state.clone()}
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.state = work.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

type tx struct {
	st *state
}

// Entities are stored by value. Slices are copied on the way in and out so
// callers never share backing arrays with the store.

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.History = nil
	return o
}

func copyTicket(t models.KitchenTicket) models.KitchenTicket {
	t.Items = append([]models.TicketItem(nil), t.Items...)
	return t
}

// tables

func (t *tx) ListTables(_ context.Context) ([]models.Table, error) {
	out := make([]models.Table, 0, len(t.st.tables))
	for _, tbl := range t.st.tables {
		out = append(out, tbl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (t *tx) GetTable(_ context.Context, id string) (*models.Table, error) {
	tbl, ok := t.st.tables[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tbl, nil
}

func (t *tx) LockTable(ctx context.Context, id string) (*models.Table, error) {
	return t.GetTable(ctx, id)
}

func (t *tx) UpdateTableStatus(_ context.Context, id string, status models.TableStatus, at time.Time) error {
	tbl, ok := t.st.tables[id]
	if !ok {
		return store.ErrNotFound
	}
	tbl.Status = status
	tbl.UpdatedAt = at
	t.st.tables[id] = tbl
	return nil
}

func (t *tx) InsertTable(_ context.Context, tbl *models.Table) error {
	if _, ok := t.st.tables[tbl.ID]; ok {
		return store.ErrConflict
	}
	t.st.tables[tbl.ID] = *tbl
	return nil
}

// sessions

func (t *tx) OpenSessionForTable(_ context.Context, tableID string) (*models.TableSession, error) {
	for _, s := range t.st.sessions {
		if s.TableID == tableID && s.ClosedAt == nil {
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) GetSession(_ context.Context, id string) (*models.TableSession, error) {
	s, ok := t.st.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *tx) InsertSession(ctx context.Context, s *models.TableSession) error {
	if _, ok := t.st.sessions[s.ID]; ok {
		return store.ErrConflict
	}
	if _, err := t.OpenSessionForTable(ctx, s.TableID); err == nil {
		return store.ErrConflict
	}
	cp := *s
	cp.Orders = nil
	t.st.sessions[s.ID] = cp
	return nil
}

func (t *tx) UpdateSession(_ context.Context, s *models.TableSession) error {
	if _, ok := t.st.sessions[s.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *s
	cp.Orders = nil
	t.st.sessions[s.ID] = cp
	return nil
}

// orders

func (t *tx) InsertOrder(_ context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range t.st.orders {
		if existing.PublicCode == o.PublicCode {
			return store.ErrConflict
		}
	}
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *tx) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyOrder(o)
	out.History = append([]models.OrderStatusHistory(nil), t.st.history[id]...)
	return &out, nil
}

func (t *tx) GetOrderByPublicCode(ctx context.Context, code string) (*models.Order, error) {
	for id, o := range t.st.orders {
		if o.PublicCode == code {
			return t.GetOrder(ctx, id)
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) LockOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyOrder(o)
	out.Items = nil
	return &out, nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus, at time.Time) error {
	o, ok := t.st.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	t.st.orders[id] = o
	return nil
}

func (t *tx) AppendOrderHistory(_ context.Context, h *models.OrderStatusHistory) error {
	if _, ok := t.st.orders[h.OrderID]; !ok {
		return store.ErrNotFound
	}
	t.st.history[h.OrderID] = append(t.st.history[h.OrderID], *h)
	return nil
}

func (t *tx) ListSessionOrders(_ context.Context, sessionID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range t.st.orders {
		if o.TableSessionID != nil && *o.TableSessionID == sessionID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := t.st.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.orders, id)
	delete(t.st.history, id)
	for tid, tk := range t.st.tickets {
		if tk.OrderID == id {
			delete(t.st.tickets, tid)
		}
	}
	return nil
}

// tickets

func (t *tx) NextTicketNumber(_ context.Context, day string) (int, error) {
	t.st.counters[day]++
	return t.st.counters[day], nil
}

func (t *tx) InsertTicket(_ context.Context, tk *models.KitchenTicket) error {
	for _, existing := range t.st.tickets {
		if existing.ID == tk.ID ||
			(existing.TicketDay == tk.TicketDay && existing.TicketNumber == tk.TicketNumber) ||
			(existing.OrderID == tk.OrderID && existing.Station == tk.Station) {
			return store.ErrConflict
		}
	}
	t.st.tickets[tk.ID] = copyTicket(*tk)
	return nil
}

func (t *tx) GetTicket(_ context.Context, id string) (*models.KitchenTicket, error) {
	tk, ok := t.st.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyTicket(tk)
	return &out, nil
}

func (t *tx) UpdateTicket(_ context.Context, tk *models.KitchenTicket) error {
	if _, ok := t.st.tickets[tk.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.tickets[tk.ID] = copyTicket(*tk)
	return nil
}

func (t *tx) ListOrderTickets(_ context.Context, orderID string) ([]models.KitchenTicket, error) {
	var out []models.KitchenTicket
	for _, tk := range t.st.tickets {
		if tk.OrderID == orderID {
			out = append(out, copyTicket(tk))
		}
	}
	sortTickets(out)
	return out, nil
}

func (t *tx) ListStationTickets(_ context.Context, station models.Station, statuses []models.TicketStatus) ([]models.KitchenTicket, error) {
	want := make(map[models.TicketStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var out []models.KitchenTicket
	for _, tk := range t.st.tickets {
		if tk.Station == station && want[tk.Status] {
			out = append(out, copyTicket(tk))
		}
	}
	sortTickets(out)
	return out, nil
}

func sortTickets(ts []models.KitchenTicket) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		if ts[i].TicketDay != ts[j].TicketDay {
			return ts[i].TicketDay < ts[j].TicketDay
		}
		return ts[i].TicketNumber < ts[j].TicketNumber
	})
}

// coupons

func (t *tx) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	for _, c := range t.st.coupons {
		if strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) RedeemCoupon(_ context.Context, id string) error {
	c, ok := t.st.coupons[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return store.ErrConflict
	}
	c.UsedCount++
	t.st.coupons[id] = c
	return nil
}

func (t *tx) UpsertCoupon(_ context.Context, c *models.Coupon) error {
	for id, existing := range t.st.coupons {
		if id != c.ID && strings.EqualFold(existing.Code, c.Code) {
			return store.ErrConflict
		}
	}
	t.st.coupons[c.ID] = *c
	return nil
}
