package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestValidateCreateOrderRequest(t *testing.T) {
	burger := ptr("burger")

	tests := []struct {
		name    string
		req     *CreateOrderRequest
		field   string
		wantErr bool
	}{
		{
			name: "valid delivery",
			req: &CreateOrderRequest{
				TakeMode:     Delivery,
				CustomerName: "John Doe",
				Phone:        "+1 555 0100",
				Address:      ptr("123 Main St"),
				Items:        []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
		},
		{
			name: "valid dine-in with tip",
			req: &CreateOrderRequest{
				TakeMode:       DineIn,
				TableSessionID: ptr("s-1"),
				TipCents:       200,
				Items:          []CreateOrderItem{{ProductID: burger, Qty: 2, Size: SizeDouble}},
			},
		},
		{
			name: "missing customer name for takeaway",
			req: &CreateOrderRequest{
				TakeMode: Takeaway,
				Items:    []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "customer_name",
			wantErr: true,
		},
		{
			name: "invalid take mode",
			req: &CreateOrderRequest{
				TakeMode:     "drive_thru",
				CustomerName: "John Doe",
				Items:        []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "take_mode",
			wantErr: true,
		},
		{
			name: "missing address for delivery",
			req: &CreateOrderRequest{
				TakeMode:     Delivery,
				CustomerName: "John Doe",
				Phone:        "555",
				Items:        []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "address",
			wantErr: true,
		},
		{
			name: "dine-in without session",
			req: &CreateOrderRequest{
				TakeMode: DineIn,
				Items:    []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "table_session_id",
			wantErr: true,
		},
		{
			name: "tip on takeaway",
			req: &CreateOrderRequest{
				TakeMode:     Takeaway,
				CustomerName: "Jane",
				TipCents:     100,
				Items:        []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "tip_cents",
			wantErr: true,
		},
		{
			name: "negative discount",
			req: &CreateOrderRequest{
				TakeMode:      Takeaway,
				CustomerName:  "Jane",
				DiscountCents: -1,
				Items:         []CreateOrderItem{{ProductID: burger, Qty: 1}},
			},
			field:   "discount_cents",
			wantErr: true,
		},
		{
			name: "empty items",
			req: &CreateOrderRequest{
				TakeMode:     Takeaway,
				CustomerName: "Jane",
			},
			field:   "items",
			wantErr: true,
		},
		{
			name: "product and combo on one line",
			req: &CreateOrderRequest{
				TakeMode:     Takeaway,
				CustomerName: "Jane",
				Items:        []CreateOrderItem{{ProductID: burger, ComboID: ptr("menu"), Qty: 1}},
			},
			field:   "items[0]",
			wantErr: true,
		},
		{
			name: "zero quantity",
			req: &CreateOrderRequest{
				TakeMode:     Takeaway,
				CustomerName: "Jane",
				Items:        []CreateOrderItem{{ProductID: burger, Qty: 0}},
			},
			field:   "items[0].qty",
			wantErr: true,
		},
		{
			name: "unit selections do not match quantity",
			req: &CreateOrderRequest{
				TakeMode:     Takeaway,
				CustomerName: "Jane",
				Items: []CreateOrderItem{{
					ProductID: burger,
					Qty:       3,
					Units:     []Selection{{Size: SizeSingle}, {Size: SizeDouble}},
				}},
			},
			field:   "items[0].units",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrValidation)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderCreated, OrderConfirmed, true},
		{OrderConfirmed, OrderInPrep, true},
		{OrderInPrep, OrderReady, true},
		{OrderReady, OrderDelivered, true},
		{OrderCreated, OrderReady, false},
		{OrderCreated, OrderInPrep, false},
		{OrderReady, OrderInPrep, false},
		{OrderDelivered, OrderDelivered, false},
		{OrderCreated, OrderCancelled, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderInPrep, OrderCancelled, true},
		{OrderReady, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderCreated, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCreateOrderItemSelections(t *testing.T) {
	item := CreateOrderItem{ProductID: ptr("p"), Qty: 3, Size: SizeDouble, ModifierIDs: []string{"cheese"}}
	sels := item.Selections()
	require.Len(t, sels, 3)
	assert.Equal(t, SizeDouble, sels[2].Size)
	assert.Equal(t, []string{"cheese"}, sels[2].ModifierIDs)

	units := []Selection{{Size: SizeSingle}, {Size: SizeDouble}}
	mixed := CreateOrderItem{ProductID: ptr("p"), Qty: 2, Units: units}
	assert.Equal(t, units, mixed.Selections())
}
