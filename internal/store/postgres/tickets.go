package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

func scanTicket(row rowScanner) (*models.KitchenTicket, error) {
	var t models.KitchenTicket
	var items []byte
	err := row.Scan(&t.ID, &t.OrderID, &t.Station, &t.Status, &t.TicketDay, &t.TicketNumber, &t.CreatedAt,
		&t.StartedAt, &t.ReadyAt, &t.DeliveredAt, &t.CancelledAt, &t.AssignedToUserID, &items, &t.Notes)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(items, &t.Items); err != nil {
		return nil, fmt.Errorf("failed to decode ticket items: %w", err)
	}
	return &t, nil
}

func (t *tx) NextTicketNumber(ctx context.Context, day string) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, database.NextTicketNumberSQL, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to allocate ticket number: %w", err)
	}
	return n, nil
}

func (t *tx) InsertTicket(ctx context.Context, tk *models.KitchenTicket) error {
	items, err := json.Marshal(tk.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket items: %w", err)
	}
	_, err = t.tx.Exec(ctx, database.InsertTicketSQL,
		tk.ID, tk.OrderID, string(tk.Station), string(tk.Status), tk.TicketDay, tk.TicketNumber, tk.CreatedAt,
		tk.StartedAt, tk.ReadyAt, tk.DeliveredAt, tk.CancelledAt, tk.AssignedToUserID, items, tk.Notes)
	return mapErr(err)
}

func (t *tx) GetTicket(ctx context.Context, id string) (*models.KitchenTicket, error) {
	return scanTicket(t.tx.QueryRow(ctx, database.GetTicketSQL, id))
}

func (t *tx) UpdateTicket(ctx context.Context, tk *models.KitchenTicket) error {
	return t.execOne(ctx, database.UpdateTicketSQL,
		tk.ID, string(tk.Status), tk.StartedAt, tk.ReadyAt, tk.DeliveredAt, tk.CancelledAt, tk.AssignedToUserID, tk.Notes)
}

func (t *tx) ListOrderTickets(ctx context.Context, orderID string) ([]models.KitchenTicket, error) {
	return t.queryTickets(ctx, database.ListOrderTicketsSQL, orderID)
}

func (t *tx) ListStationTickets(ctx context.Context, station models.Station, statuses []models.TicketStatus) ([]models.KitchenTicket, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return t.queryTickets(ctx, database.ListStationTicketsSQL, string(station), names)
}

func (t *tx) queryTickets(ctx context.Context, sql string, args ...any) ([]models.KitchenTicket, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []models.KitchenTicket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tk)
	}
	return out, rows.Err()
}
