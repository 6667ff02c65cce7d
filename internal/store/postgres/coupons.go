package postgres

import (
	"context"
	"fmt"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func (t *tx) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := t.tx.QueryRow(ctx, database.GetCouponByCodeSQL, code).Scan(
		&c.ID, &c.Code, &c.PercentOff, &c.AmountOffCents, &c.ValidFrom, &c.ValidUntil, &c.MaxUses, &c.UsedCount, &c.IsActive)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// RedeemCoupon uses a conditional increment so two orders cannot both take the last use.
func (t *tx) RedeemCoupon(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, database.RedeemCouponSQL, id)
	if err != nil {
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t *tx) UpsertCoupon(ctx context.Context, c *models.Coupon) error {
	_, err := t.tx.Exec(ctx, database.UpsertCouponSQL,
		c.ID, c.Code, c.PercentOff, c.AmountOffCents, c.ValidFrom, c.ValidUntil, c.MaxUses, c.UsedCount, c.IsActive)
	return mapErr(err)
}
