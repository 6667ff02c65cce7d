package models

import (
	"strings"
	"time"
)

// Station is a production area of the kitchen
type Station string

const (
	StationKitchen  Station = "KITCHEN"
	StationBar      Station = "BAR"
	StationGrill    Station = "GRILL"
	StationDesserts Station = "DESSERTS"
)

// Stations lists every station in display order.
var Stations = []Station{StationKitchen, StationBar, StationGrill, StationDesserts}

func (s Station) Valid() bool {
	for _, st := range Stations {
		if st == s {
			return true
		}
	}
	return false
}

// ParseStation normalises a station name, accepting any case.
func ParseStation(value string) (Station, bool) {
	s := Station(strings.ToUpper(strings.TrimSpace(value)))
	return s, s.Valid()
}

// TicketStatus represents the production status of a kitchen ticket
type TicketStatus string

const (
	TicketPending    TicketStatus = "PENDING"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketReady      TicketStatus = "READY"
	TicketDelivered  TicketStatus = "DELIVERED"
	TicketCancelled  TicketStatus = "CANCELLED"
)

var ticketFlow = []TicketStatus{TicketPending, TicketInProgress, TicketReady, TicketDelivered}

// Rank returns the position of s in the ticket chain, or -1 for CANCELLED.
func (s TicketStatus) Rank() int {
	for i, st := range ticketFlow {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the only status a ticket in s may move to.
func (s TicketStatus) Next() (TicketStatus, bool) {
	r := s.Rank()
	if r < 0 || r == len(ticketFlow)-1 {
		return "", false
	}
	return ticketFlow[r+1], true
}

func (s TicketStatus) Open() bool {
	return s == TicketPending || s == TicketInProgress || s == TicketReady
}

// KitchenTicket represents a station's share of an order
type KitchenTicket struct {
	ID               string       `json:"id"`
	OrderID          string       `json:"order_id"`
	Station          Station      `json:"station"`
	Status           TicketStatus `json:"status"`
	TicketDay        string       `json:"ticket_day"`
	TicketNumber     int          `json:"ticket_number"`
	CreatedAt        time.Time    `json:"created_at"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	ReadyAt          *time.Time   `json:"ready_at,omitempty"`
	DeliveredAt      *time.Time   `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty"`
	AssignedToUserID *string      `json:"assigned_to,omitempty"`
	Items            []TicketItem `json:"items"`
	Notes            *string      `json:"notes,omitempty"`
}

// TicketItem is what the station has to produce
type TicketItem struct {
	OrderItemID string             `json:"order_item_id"`
	Name        string             `json:"name"`
	Qty         int                `json:"qty"`
	Size        Size               `json:"size,omitempty"`
	Modifiers   []ModifierSnapshot `json:"modifiers,omitempty"`
	ComboName   string             `json:"combo_name,omitempty"`
	Note        string             `json:"note,omitempty"`
}

// TicketDayLayout formats the per-day ticket counter key.
const TicketDayLayout = "2006-01-02"
