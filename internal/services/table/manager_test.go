package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
)

var fixedNow = time.Date(2024, 6, 5, 19, 30, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	recorder *events.Recorder
	manager  *Manager
}

func newFixture(t *testing.T, tables ...models.Table) *fixture {
	t.Helper()
	st := memory.New()
	err := st.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for i := range tables {
			if err := tx.InsertTable(ctx, &tables[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	rec := &events.Recorder{}
	m := NewManager(st, rec, logger.Discard())
	m.SetClock(func() time.Time { return fixedNow })
	return &fixture{store: st, recorder: rec, manager: m}
}

func table(id string, status models.TableStatus, capacity int) models.Table {
	return models.Table{ID: id, Name: "T-" + id, Capacity: capacity, IsActive: true, Status: status}
}

func (f *fixture) insertOrder(t *testing.T, o models.Order) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		return f.manager.AttachOrderTx(ctx, tx, *o.TableSessionID, &o)
	})
	require.NoError(t, err)
}

func TestOpenSessionOnReservedTableAtCapacity(t *testing.T) {
	f := newFixture(t, table("t1", models.TableReserved, 4))
	ctx := context.Background()

	sess, err := f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 4})
	require.NoError(t, err)
	assert.True(t, sess.Open())
	assert.Equal(t, fixedNow, sess.OpenedAt)

	tbl, err := f.manager.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, tbl.Status)

	_, err = f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 2})
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyOpen)

	assert.Len(t, f.recorder.OfType(models.EventSessionOpened), 1)
	changed := f.recorder.OfType(models.EventTableStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "RESERVED", changed[0].OldStatus)
	assert.Equal(t, "OCCUPIED", changed[0].NewStatus)
}

func TestOpenSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   models.Table
		guests  int
		wantErr error
	}{
		{"zero guests", table("t1", models.TableAvailable, 4), 0, apperr.ErrValidation},
		{"over capacity", table("t1", models.TableAvailable, 4), 5, apperr.ErrValidation},
		{"out of service", table("t1", models.TableOutOfService, 4), 2, apperr.ErrTableNotAvailable},
		{"inactive", models.Table{ID: "t1", Name: "T-t1", Capacity: 4, Status: models.TableAvailable}, 2, apperr.ErrTableNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.table)
			_, err := f.manager.OpenSession(context.Background(), "t1", models.OpenSessionRequest{GuestCount: tt.guests})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.recorder.Events())
		})
	}

	f := newFixture(t)
	_, err := f.manager.OpenSession(context.Background(), "missing", models.OpenSessionRequest{GuestCount: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentOpenSessionHasOneWinner(t *testing.T) {
	f := newFixture(t, table("t1", models.TableAvailable, 4))

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.OpenSession(context.Background(), "t1", models.OpenSessionRequest{GuestCount: 2})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrSessionAlreadyOpen):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflict)
}

// lostRaceStore hides committed sessions from the pre-check and makes the
// insert fail the way the open-session unique index does under Postgres.
type lostRaceStore struct {
	store.Store
}

func (s lostRaceStore) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, lostRaceTx{Tx: tx})
	})
}

type lostRaceTx struct {
	store.Tx
}

func (lostRaceTx) OpenSessionForTable(context.Context, string) (*models.TableSession, error) {
	return nil, store.ErrNotFound
}

func (lostRaceTx) InsertSession(context.Context, *models.TableSession) error {
	return store.ErrConflict
}

func TestOpenSessionInsertConflictIsAlreadyOpen(t *testing.T) {
	f := newFixture(t, table("t1", models.TableAvailable, 4))
	m := NewManager(lostRaceStore{Store: f.store}, f.recorder, logger.Discard())
	m.SetClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	_, err := m.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyOpen)
	assert.ErrorIs(t, err, store.ErrConflict)

	tbl, err := f.manager.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Equal(t, time.Time{}, tbl.UpdatedAt)
	assert.Empty(t, f.recorder.Events())

	err = f.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.OpenSessionForTable(ctx, "t1")
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAttachAndCloseSession(t *testing.T) {
	f := newFixture(t, table("t1", models.TableAvailable, 4))
	ctx := context.Background()

	sess, err := f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 2})
	require.NoError(t, err)

	f.insertOrder(t, models.Order{ID: "o1", PublicCode: "AAA111", TableSessionID: &sess.ID, TakeMode: models.DineIn, Status: models.OrderCreated, TotalCents: 2500})
	f.insertOrder(t, models.Order{ID: "o2", PublicCode: "BBB222", TableSessionID: &sess.ID, TakeMode: models.DineIn, Status: models.OrderCreated, TotalCents: 1500})

	got, err := f.manager.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4000, got.SubtotalCents)
	assert.Len(t, got.Orders, 2)

	// A cancelled order does not count towards the bill.
	err = f.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateOrderStatus(ctx, "o2", models.OrderCancelled, fixedNow)
	})
	require.NoError(t, err)

	_, err = f.manager.RequestBill(ctx, "t1")
	require.NoError(t, err)

	closed, err := f.manager.Close(ctx, sess.ID, models.CloseSessionRequest{PaymentMethod: "card", TipCents: 300})
	require.NoError(t, err)
	assert.EqualValues(t, 2500, closed.SubtotalCents)
	assert.EqualValues(t, 300, closed.TipCents)
	assert.EqualValues(t, 2800, closed.TotalCents)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.PaidAt)
	assert.Equal(t, "card", *closed.PaymentMethod)

	tbl, err := f.manager.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)

	_, err = f.manager.Close(ctx, sess.ID, models.CloseSessionRequest{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperr.ErrSessionClosed)

	err = f.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return f.manager.AttachOrderTx(ctx, tx, sess.ID, &models.Order{ID: "o3", TotalCents: 100})
	})
	assert.ErrorIs(t, err, apperr.ErrSessionClosed)

	ev := f.recorder.OfType(models.EventSessionClosed)
	require.Len(t, ev, 1)
	assert.EqualValues(t, 2800, ev[0].TotalCents)
}

func TestDetachOrderAdjustsOpenSession(t *testing.T) {
	f := newFixture(t, table("t1", models.TableAvailable, 4))
	ctx := context.Background()

	sess, err := f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 2})
	require.NoError(t, err)
	o := models.Order{ID: "o1", PublicCode: "AAA111", TableSessionID: &sess.ID, TakeMode: models.DineIn, Status: models.OrderCreated, TotalCents: 1200}
	f.insertOrder(t, o)

	err = f.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return f.manager.DetachOrderTx(ctx, tx, &o)
	})
	require.NoError(t, err)

	got, err := f.manager.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Zero(t, got.SubtotalCents)
	assert.Zero(t, got.TotalCents)
}

func TestCloseSessionValidation(t *testing.T) {
	f := newFixture(t, table("t1", models.TableAvailable, 4))
	ctx := context.Background()
	sess, err := f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 2})
	require.NoError(t, err)

	_, err = f.manager.Close(ctx, sess.ID, models.CloseSessionRequest{PaymentMethod: "card", TipCents: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.manager.Close(ctx, sess.ID, models.CloseSessionRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.manager.Close(ctx, "missing", models.CloseSessionRequest{PaymentMethod: "card"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTableTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("reserve and release", func(t *testing.T) {
		f := newFixture(t, table("t1", models.TableAvailable, 4))
		tbl, err := f.manager.Reserve(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, models.TableReserved, tbl.Status)

		_, err = f.manager.Reserve(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)

		tbl, err = f.manager.Release(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, models.TableAvailable, tbl.Status)
	})

	t.Run("out of service round trip", func(t *testing.T) {
		f := newFixture(t, table("t1", models.TableAvailable, 4))
		tbl, err := f.manager.SetOutOfService(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, models.TableOutOfService, tbl.Status)

		_, err = f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 1})
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)

		_, err = f.manager.Release(ctx, "t1")
		require.NoError(t, err)
	})

	t.Run("release requires no open session", func(t *testing.T) {
		f := newFixture(t, table("t1", models.TableAvailable, 4))
		_, err := f.manager.OpenSession(ctx, "t1", models.OpenSessionRequest{GuestCount: 1})
		require.NoError(t, err)

		_, err = f.manager.Release(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)
		_, err = f.manager.SetOutOfService(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)
	})

	t.Run("seated status without session row", func(t *testing.T) {
		f := newFixture(t, table("t1", models.TableBillRequested, 4))
		_, err := f.manager.Release(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)
		_, err = f.manager.SetOutOfService(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrTableNotAvailable)
		assert.Empty(t, f.recorder.Events())
	})

	t.Run("bill requires occupied", func(t *testing.T) {
		f := newFixture(t, table("t1", models.TableAvailable, 4))
		_, err := f.manager.RequestBill(ctx, "t1")
		assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
	})
}

func TestListTablesOrdered(t *testing.T) {
	a := table("a", models.TableAvailable, 2)
	a.SortOrder = 2
	b := table("b", models.TableAvailable, 2)
	b.SortOrder = 1
	f := newFixture(t, a, b)

	tables, err := f.manager.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "b", tables[0].ID)
	assert.Equal(t, "a", tables[1].ID)
}
