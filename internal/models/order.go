package models

import (
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/apperr"
)

// TakeMode represents how the order leaves the kitchen
type TakeMode string

const (
	DineIn   TakeMode = "DINE_IN"
	Delivery TakeMode = "DELIVERY"
	Takeaway TakeMode = "TAKEAWAY"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderInPrep    OrderStatus = "IN_PREP"
	OrderReady     OrderStatus = "READY"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderFlow is the canonical forward chain. CANCELLED sits outside it.
var OrderFlow = []OrderStatus{OrderCreated, OrderConfirmed, OrderInPrep, OrderReady, OrderDelivered}

// Rank returns the position of s in OrderFlow, or -1 for CANCELLED and unknown values.
func (s OrderStatus) Rank() int {
	for i, st := range OrderFlow {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the canonical successor of s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	r := s.Rank()
	if r < 0 || r == len(OrderFlow)-1 {
		return "", false
	}
	return OrderFlow[r+1], true
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderCreated || s == OrderConfirmed || s == OrderInPrep
}

// CanTransitionTo reports whether next is a valid successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderCancelled {
		return s.Cancellable()
	}
	succ, ok := s.Next()
	return ok && succ == next
}

func (s OrderStatus) Valid() bool {
	return s == OrderCancelled || s.Rank() >= 0
}

// Order represents a customer order
type Order struct {
	ID             string               `json:"id"`
	TableSessionID *string              `json:"table_session_id,omitempty"`
	BranchID       *string              `json:"branch_id,omitempty"`
	Channel        string               `json:"channel,omitempty"`
	CustomerName   string               `json:"customer_name"`
	Phone          string               `json:"phone,omitempty"`
	TakeMode       TakeMode             `json:"take_mode"`
	Address        *string              `json:"address,omitempty"`
	ScheduledAt    *time.Time           `json:"scheduled_at,omitempty"`
	Note           *string              `json:"note,omitempty"`
	CouponID       *string              `json:"coupon_id,omitempty"`
	SubtotalCents  int64                `json:"subtotal_cents"`
	DiscountCents  int64                `json:"discount_cents"`
	TotalCents     int64                `json:"total_cents"`
	TipCents       int64                `json:"tip_cents"`
	PublicCode     string               `json:"public_code"`
	Status         OrderStatus          `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Items          []OrderItem          `json:"items,omitempty"`
	History        []OrderStatusHistory `json:"history,omitempty"`
}

// OrderItem represents a priced line of an order
type OrderItem struct {
	ID                  string       `json:"id"`
	OrderID             string       `json:"order_id"`
	ProductID           *string      `json:"product_id,omitempty"`
	ComboID             *string      `json:"combo_id,omitempty"`
	NameSnapshot        string       `json:"name"`
	Qty                 int          `json:"qty"`
	UnitPriceCents      int64        `json:"unit_price_cents"`
	ModifiersTotalCents int64        `json:"modifiers_total_cents"`
	LineTotalCents      int64        `json:"line_total_cents"`
	Station             Station      `json:"station"`
	Snapshot            ItemSnapshot `json:"snapshot"`
}

// Size selects which base price of a product applies.
type Size string

const (
	SizeSingle Size = "SINGLE"
	SizeDouble Size = "DOUBLE"
)

// ItemSnapshotVersion is bumped whenever the snapshot layout changes.
const ItemSnapshotVersion = 1

// ItemSnapshot is the configuration captured when the line was priced.
type ItemSnapshot struct {
	Version         int                 `json:"version"`
	Size            Size                `json:"size,omitempty"`
	Modifiers       []ModifierSnapshot  `json:"modifiers,omitempty"`
	ComboComponents []ComboComponentRef `json:"combo_components,omitempty"`
	Units           []UnitSnapshot      `json:"units,omitempty"`
	Promotions      []string            `json:"promotions,omitempty"`
	Note            string              `json:"note,omitempty"`
}

type ModifierSnapshot struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}

// ComboComponentRef is a product bundled in a combo, routed to its own station.
type ComboComponentRef struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	Station   Station `json:"station"`
}

// UnitSnapshot records one unit of a line whose units were configured differently.
type UnitSnapshot struct {
	Size           Size               `json:"size"`
	Modifiers      []ModifierSnapshot `json:"modifiers,omitempty"`
	UnitPriceCents int64              `json:"unit_price_cents"`
	Waived         bool               `json:"waived,omitempty"`
}

// OrderStatusHistory represents an entry in the order status log
type OrderStatusHistory struct {
	ID              string      `json:"id"`
	OrderID         string      `json:"order_id"`
	Status          OrderStatus `json:"status"`
	ChangedByUserID *string     `json:"changed_by,omitempty"`
	ChangedAt       time.Time   `json:"changed_at"`
}

// Selection is one configuration of a product: size plus modifier ids.
type Selection struct {
	Size        Size     `json:"size,omitempty"`
	ModifierIDs []string `json:"modifier_ids,omitempty"`
}

// CreateOrderItem is a requested line.
// Units, when present, must hold exactly Qty selections and override Size/ModifierIDs.
type CreateOrderItem struct {
	ProductID   *string     `json:"product_id,omitempty"`
	ComboID     *string     `json:"combo_id,omitempty"`
	Qty         int         `json:"qty"`
	Size        Size        `json:"size,omitempty"`
	ModifierIDs []string    `json:"modifier_ids,omitempty"`
	Units       []Selection `json:"units,omitempty"`
	Note        string      `json:"note,omitempty"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	TakeMode       TakeMode          `json:"take_mode"`
	TableSessionID *string           `json:"table_session_id,omitempty"`
	BranchID       *string           `json:"branch_id,omitempty"`
	Channel        string            `json:"channel,omitempty"`
	CustomerName   string            `json:"customer_name"`
	Phone          string            `json:"phone,omitempty"`
	Address        *string           `json:"address,omitempty"`
	ScheduledAt    *time.Time        `json:"scheduled_at,omitempty"`
	Note           *string           `json:"note,omitempty"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	DiscountCents  int64             `json:"discount_cents"`
	TipCents       int64             `json:"tip_cents"`
	Items          []CreateOrderItem `json:"items"`
	ActorID        *string           `json:"actor_id,omitempty"`
}

const (
	maxOrderItems   = 50
	maxItemQty      = 99
	maxCustomerName = 100
	maxNoteLength   = 500
)

// Validate checks the request shape. Catalog-dependent checks happen during pricing.
func (req *CreateOrderRequest) Validate() error {
	if err := validateTakeMode(req); err != nil {
		return err
	}

	if err := validateCustomer(req); err != nil {
		return err
	}

	if req.DiscountCents < 0 {
		return apperr.Validation("discount_cents", "must not be negative")
	}
	if req.TipCents < 0 {
		return apperr.Validation("tip_cents", "must not be negative")
	}
	if req.TipCents > 0 && req.TakeMode != DineIn {
		return apperr.Validation("tip_cents", "tip is only accepted for dine-in orders")
	}
	if req.Note != nil && len(*req.Note) > maxNoteLength {
		return apperr.Validation("note", fmt.Sprintf("must not exceed %d characters", maxNoteLength))
	}

	return validateItems(req.Items)
}

// validateTakeMode checks the fields that depend on the take mode
func validateTakeMode(req *CreateOrderRequest) error {
	switch req.TakeMode {
	case DineIn:
		if req.TableSessionID == nil || *req.TableSessionID == "" {
			return apperr.Validation("table_session_id", "is required for dine-in orders")
		}
		if req.Address != nil {
			return apperr.Validation("address", "must not be present for dine-in orders")
		}
	case Delivery:
		if req.Address == nil || strings.TrimSpace(*req.Address) == "" {
			return apperr.Validation("address", "is required for delivery orders")
		}
		if req.TableSessionID != nil {
			return apperr.Validation("table_session_id", "must not be present for delivery orders")
		}
	case Takeaway:
		if req.TableSessionID != nil {
			return apperr.Validation("table_session_id", "must not be present for takeaway orders")
		}
		if req.Address != nil {
			return apperr.Validation("address", "must not be present for takeaway orders")
		}
	default:
		return apperr.Validation("take_mode", "must be one of: DINE_IN, DELIVERY, TAKEAWAY")
	}
	return nil
}

func validateCustomer(req *CreateOrderRequest) error {
	name := strings.TrimSpace(req.CustomerName)
	if len(name) > maxCustomerName {
		return apperr.Validation("customer_name", fmt.Sprintf("must not exceed %d characters", maxCustomerName))
	}
	if req.TakeMode != DineIn && name == "" {
		return apperr.Validation("customer_name", "is required for off-premise orders")
	}
	if req.TakeMode == Delivery && strings.TrimSpace(req.Phone) == "" {
		return apperr.Validation("phone", "is required for delivery orders")
	}
	return nil
}

// validateItems validates the order items
func validateItems(items []CreateOrderItem) error {
	if len(items) == 0 {
		return apperr.Validation("items", "cannot be empty")
	}
	if len(items) > maxOrderItems {
		return apperr.Validation("items", fmt.Sprintf("cannot contain more than %d lines", maxOrderItems))
	}

	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)

		hasProduct := item.ProductID != nil && *item.ProductID != ""
		hasCombo := item.ComboID != nil && *item.ComboID != ""
		if hasProduct == hasCombo {
			return apperr.Validation(prefix, "exactly one of product_id or combo_id is required")
		}
		if item.Qty < 1 || item.Qty > maxItemQty {
			return apperr.Validation(prefix+".qty", fmt.Sprintf("must be between 1 and %d", maxItemQty))
		}
		if hasCombo && (len(item.Units) > 0 || len(item.ModifierIDs) > 0 || item.Size != "") {
			return apperr.Validation(prefix, "combos do not take size or modifiers")
		}
		if len(item.Units) > 0 && len(item.Units) != item.Qty {
			return apperr.Validation(prefix+".units", "must list one selection per unit")
		}
		if item.Size != "" && item.Size != SizeSingle && item.Size != SizeDouble {
			return apperr.Validation(prefix+".size", "must be SINGLE or DOUBLE")
		}
		for j, u := range item.Units {
			if u.Size != "" && u.Size != SizeSingle && u.Size != SizeDouble {
				return apperr.Validation(fmt.Sprintf("%s.units[%d].size", prefix, j), "must be SINGLE or DOUBLE")
			}
		}
	}
	return nil
}

// Selections expands the line into one selection per unit.
func (item CreateOrderItem) Selections() []Selection {
	if len(item.Units) > 0 {
		return item.Units
	}
	out := make([]Selection, item.Qty)
	for i := range out {
		out[i] = Selection{Size: item.Size, ModifierIDs: item.ModifierIDs}
	}
	return out
}

// UpdateStatusRequest asks for an order or ticket status change
type UpdateStatusRequest struct {
	Status  string  `json:"status"`
	ActorID *string `json:"actor_id,omitempty"`
}
