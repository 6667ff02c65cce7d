package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

// Postgres reads the catalog tables directly
type Postgres struct {
	db *database.DB
}

func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

func (c *Postgres) Product(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := c.db.QueryRow(ctx, database.GetProductSQL, id).Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.BasePriceCents, &p.DoublePriceCents, &p.IsActive, &p.Station)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	rows, err := c.db.Query(ctx, database.GetProductModifiersSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load modifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Modifier
		if err := rows.Scan(&m.ID, &m.Name, &m.PriceDeltaCents); err != nil {
			return nil, fmt.Errorf("failed to scan modifier: %w", err)
		}
		p.Modifiers = append(p.Modifiers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !p.Station.Valid() {
		p.Station = ""
	}
	return &p, nil
}

func (c *Postgres) Combo(ctx context.Context, id string) (*models.Combo, error) {
	var combo models.Combo
	err := c.db.QueryRow(ctx, database.GetComboSQL, id).Scan(&combo.ID, &combo.Name, &combo.ListedPriceCents, &combo.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("combo", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load combo: %w", err)
	}

	rows, err := c.db.Query(ctx, database.GetComboItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load combo items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var comp models.ComboComponent
		if err := rows.Scan(&comp.ProductID, &comp.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan combo item: %w", err)
		}
		combo.Components = append(combo.Components, comp)
	}
	return &combo, rows.Err()
}

func (c *Postgres) CurrentPromotions(ctx context.Context) (models.Promotions, error) {
	var promos models.Promotions

	rows, err := c.db.Query(ctx, database.ListActivePromotionsSQL)
	if err != nil {
		return promos, fmt.Errorf("failed to load promotions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name, kind string
			percent        int
			productIDs     []string
			weekdays       []int32
			start, end     string
		)
		if err := rows.Scan(&id, &name, &kind, &percent, &productIDs, &weekdays, &start, &end); err != nil {
			return promos, fmt.Errorf("failed to scan promotion: %w", err)
		}

		window := models.TimeWindow{Start: start, End: end}
		for _, d := range weekdays {
			window.Weekdays = append(window.Weekdays, time.Weekday(d))
		}

		switch kind {
		case "PERCENT":
			promos.Percent = append(promos.Percent, models.PercentPromotion{
				ID: id, Name: name, Percent: percent, ProductIDs: productIDs, Window: window,
			})
		case "TWO_FOR_ONE":
			promos.TwoForOne = append(promos.TwoForOne, models.TwoForOnePromotion{
				ID: id, Name: name, ProductIDs: productIDs, Window: window,
			})
		}
	}
	return promos, rows.Err()
}
