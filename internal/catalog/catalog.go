// Package catalog provides read-only access to products, combos and promotions.
package catalog

import (
	"context"

	"restaurant-pos/internal/models"
)

// Gateway is the read-only catalog contract used by order pricing and ticket routing.
type Gateway interface {
	// Product returns an active product with its active modifiers and resolved station.
	// Station is empty when the category has none.
	Product(ctx context.Context, id string) (*models.Product, error)
	// Combo returns an active combo and its components.
	Combo(ctx context.Context, id string) (*models.Combo, error)
	// CurrentPromotions returns the promotion configuration in force.
	CurrentPromotions(ctx context.Context) (models.Promotions, error)
}
