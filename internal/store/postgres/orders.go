package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.TableSessionID, &o.BranchID, &o.Channel, &o.CustomerName, &o.Phone, &o.TakeMode,
		&o.Address, &o.ScheduledAt, &o.Note, &o.CouponID, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents,
		&o.TipCents, &o.PublicCode, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// InsertOrder writes the order and its items under a savepoint so a public
// code collision can be retried without aborting the surrounding transaction.
func (t *tx) InsertOrder(ctx context.Context, o *models.Order) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	_, err = sp.Exec(ctx, database.InsertOrderSQL,
		o.ID, o.TableSessionID, o.BranchID, o.Channel, o.CustomerName, o.Phone, string(o.TakeMode), o.Address,
		o.ScheduledAt, o.Note, o.CouponID, o.SubtotalCents, o.DiscountCents, o.TotalCents, o.TipCents,
		o.PublicCode, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}

	for _, item := range o.Items {
		snapshot, err := json.Marshal(item.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal item snapshot: %w", err)
		}
		_, err = sp.Exec(ctx, database.InsertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.ComboID, item.NameSnapshot, item.Qty, item.UnitPriceCents,
			item.ModifiersTotalCents, item.LineTotalCents, string(item.Station), snapshot)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", mapErr(err))
		}
	}

	return sp.Commit(ctx)
}

func (t *tx) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, database.GetOrderSQL, id))
	if err != nil {
		return nil, err
	}
	return t.loadOrderDetails(ctx, o)
}

func (t *tx) GetOrderByPublicCode(ctx context.Context, code string) (*models.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, database.GetOrderByPublicCodeSQL, code))
	if err != nil {
		return nil, err
	}
	return t.loadOrderDetails(ctx, o)
}

func (t *tx) loadOrderDetails(ctx context.Context, o *models.Order) (*models.Order, error) {
	items, err := t.orderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	history, err := t.orderHistory(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.History = history
	return o, nil
}

func (t *tx) orderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := t.tx.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		var snapshot []byte
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ComboID, &item.NameSnapshot, &item.Qty,
			&item.UnitPriceCents, &item.ModifiersTotalCents, &item.LineTotalCents, &item.Station, &snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if err := json.Unmarshal(snapshot, &item.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode item snapshot: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *tx) orderHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	rows, err := t.tx.Query(ctx, database.GetOrderStatusHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var h models.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedByUserID, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (t *tx) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, database.LockOrderSQL, id))
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	return t.execOne(ctx, database.UpdateOrderStatusSQL, id, string(status), at)
}

func (t *tx) AppendOrderHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	_, err := t.tx.Exec(ctx, database.InsertOrderStatusHistorySQL,
		h.ID, h.OrderID, string(h.Status), h.ChangedByUserID, h.ChangedAt)
	return mapErr(err)
}

func (t *tx) ListSessionOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	rows, err := t.tx.Query(ctx, database.ListSessionOrdersSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// DeleteOrder relies on ON DELETE CASCADE for items, history and tickets.
func (t *tx) DeleteOrder(ctx context.Context, id string) error {
	return t.execOne(ctx, database.DeleteOrderSQL, id)
}
