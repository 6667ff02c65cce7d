package models

import "time"

// TableStatus represents the floor status of a table
type TableStatus string

const (
	TableAvailable     TableStatus = "AVAILABLE"
	TableOccupied      TableStatus = "OCCUPIED"
	TableReserved      TableStatus = "RESERVED"
	TableOutOfService  TableStatus = "OUT_OF_SERVICE"
	TableBillRequested TableStatus = "BILL_REQUESTED"
)

// Seated reports whether the status implies an open session.
func (s TableStatus) Seated() bool {
	return s == TableOccupied || s == TableBillRequested
}

// Table represents a physical table on the floor
type Table struct {
	ID        string      `json:"id" yaml:"id"`
	BranchID  string      `json:"branch_id" yaml:"branch"`
	Name      string      `json:"name" yaml:"name"`
	Capacity  int         `json:"capacity" yaml:"capacity"`
	SortOrder int         `json:"sort_order" yaml:"sort_order"`
	IsActive  bool        `json:"is_active" yaml:"active"`
	Status    TableStatus `json:"status" yaml:"status"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"-"`
}

// TableSession represents one seating at a table, from open to payment
type TableSession struct {
	ID               string     `json:"id"`
	TableID          string     `json:"table_id"`
	CustomerName     *string    `json:"customer_name,omitempty"`
	GuestCount       int        `json:"guest_count"`
	OpenedAt         time.Time  `json:"opened_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	AssignedWaiterID *string    `json:"assigned_waiter_id,omitempty"`
	SubtotalCents    int64      `json:"subtotal_cents"`
	TipCents         int64      `json:"tip_cents"`
	TotalCents       int64      `json:"total_cents"`
	PaymentMethod    *string    `json:"payment_method,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Orders           []Order    `json:"orders,omitempty"`
}

func (s *TableSession) Open() bool {
	return s.ClosedAt == nil
}

// OpenSessionRequest is the payload for seating guests
type OpenSessionRequest struct {
	GuestCount   int     `json:"guest_count"`
	CustomerName *string `json:"customer_name,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	WaiterID     *string `json:"waiter_id,omitempty"`
}

// CloseSessionRequest is the payload for settling a session
type CloseSessionRequest struct {
	PaymentMethod string  `json:"payment_method"`
	TipCents      int64   `json:"tip_cents"`
	ActorID       *string `json:"actor_id,omitempty"`
}
