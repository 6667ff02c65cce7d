package postgres

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

func scanTable(row rowScanner) (*models.Table, error) {
	var t models.Table
	err := row.Scan(&t.ID, &t.BranchID, &t.Name, &t.Capacity, &t.SortOrder, &t.IsActive, &t.Status, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (t *tx) ListTables(ctx context.Context) ([]models.Table, error) {
	rows, err := t.tx.Query(ctx, database.ListTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []models.Table
	for rows.Next() {
		tbl, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tbl)
	}
	return out, rows.Err()
}

func (t *tx) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return scanTable(t.tx.QueryRow(ctx, database.GetTableSQL, id))
}

func (t *tx) LockTable(ctx context.Context, id string) (*models.Table, error) {
	return scanTable(t.tx.QueryRow(ctx, database.LockTableSQL, id))
}

func (t *tx) UpdateTableStatus(ctx context.Context, id string, status models.TableStatus, at time.Time) error {
	return t.execOne(ctx, database.UpdateTableStatusSQL, id, string(status), at)
}

func (t *tx) InsertTable(ctx context.Context, tbl *models.Table) error {
	_, err := t.tx.Exec(ctx, database.InsertTableSQL,
		tbl.ID, tbl.BranchID, tbl.Name, tbl.Capacity, tbl.SortOrder, tbl.IsActive, string(tbl.Status), tbl.UpdatedAt)
	return mapErr(err)
}

func scanSession(row rowScanner) (*models.TableSession, error) {
	var s models.TableSession
	err := row.Scan(&s.ID, &s.TableID, &s.CustomerName, &s.GuestCount, &s.OpenedAt, &s.ClosedAt,
		&s.AssignedWaiterID, &s.SubtotalCents, &s.TipCents, &s.TotalCents, &s.PaymentMethod, &s.PaidAt, &s.Notes)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (t *tx) OpenSessionForTable(ctx context.Context, tableID string) (*models.TableSession, error) {
	return scanSession(t.tx.QueryRow(ctx, database.GetOpenSessionForTableSQL, tableID))
}

func (t *tx) GetSession(ctx context.Context, id string) (*models.TableSession, error) {
	return scanSession(t.tx.QueryRow(ctx, database.GetSessionSQL, id))
}

func (t *tx) InsertSession(ctx context.Context, s *models.TableSession) error {
	_, err := t.tx.Exec(ctx, database.InsertSessionSQL,
		s.ID, s.TableID, s.CustomerName, s.GuestCount, s.OpenedAt, s.ClosedAt, s.AssignedWaiterID,
		s.SubtotalCents, s.TipCents, s.TotalCents, s.PaymentMethod, s.PaidAt, s.Notes)
	return mapErr(err)
}

func (t *tx) UpdateSession(ctx context.Context, s *models.TableSession) error {
	return t.execOne(ctx, database.UpdateSessionSQL,
		s.ID, s.CustomerName, s.GuestCount, s.ClosedAt, s.AssignedWaiterID,
		s.SubtotalCents, s.TipCents, s.TotalCents, s.PaymentMethod, s.PaidAt, s.Notes)
}
