package tracking

import (
	"context"

	"restaurant-pos/internal/store"
)

// Reader runs read-only units of work against the order store.
type Reader interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
}
