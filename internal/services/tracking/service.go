// Package tracking answers unauthenticated "where is my order" lookups by public code.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

// Status is what a customer sees when tracking an order
type Status struct {
	PublicCode    string            `json:"public_code"`
	CurrentStatus string            `json:"current_status"`
	TakeMode      string            `json:"take_mode"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ScheduledAt   *time.Time        `json:"scheduled_at,omitempty"`
	History       []HistoryEntry    `json:"history"`
	Stations      []StationProgress `json:"stations"`
}

// HistoryEntry is one step of the order's status trail
type HistoryEntry struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// StationProgress reports how far one station is with its share of the order
type StationProgress struct {
	Station      string     `json:"station"`
	TicketNumber int        `json:"ticket_number"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ReadyAt      *time.Time `json:"ready_at,omitempty"`
}

// Service provides tracking functionality
type Service struct {
	reader Reader
	logger *logger.Logger
}

// NewService creates a new tracking service
func NewService(reader Reader, log *logger.Logger) *Service {
	return &Service{
		reader: reader,
		logger: log,
	}
}

// Track returns the customer-facing status of the order with the given public code.
func (s *Service) Track(ctx context.Context, publicCode string) (*Status, error) {
	code := strings.ToUpper(strings.TrimSpace(publicCode))
	if code == "" {
		return nil, apperr.Validation("code", "is required")
	}

	var out *Status
	err := s.reader.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.GetOrderByPublicCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("order", code)
			}
			return fmt.Errorf("failed to query order: %w", err)
		}
		tickets, err := tx.ListOrderTickets(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to query tickets: %w", err)
		}
		out = newStatus(o, tickets)
		return nil
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeInternal {
			s.logger.Error("db_query_failed", "Failed to track order", logger.RequestID(ctx), err, map[string]interface{}{
				"public_code": code,
			})
		}
		return nil, err
	}
	return out, nil
}

func newStatus(o *models.Order, tickets []models.KitchenTicket) *Status {
	st := &Status{
		PublicCode:    o.PublicCode,
		CurrentStatus: string(o.Status),
		TakeMode:      string(o.TakeMode),
		UpdatedAt:     o.UpdatedAt,
		ScheduledAt:   o.ScheduledAt,
		History:       make([]HistoryEntry, 0, len(o.History)),
		Stations:      make([]StationProgress, 0, len(tickets)),
	}
	for _, h := range o.History {
		st.History = append(st.History, HistoryEntry{Status: string(h.Status), ChangedAt: h.ChangedAt})
	}
	for _, t := range tickets {
		st.Stations = append(st.Stations, StationProgress{
			Station:      string(t.Station),
			TicketNumber: t.TicketNumber,
			Status:       string(t.Status),
			StartedAt:    t.StartedAt,
			ReadyAt:      t.ReadyAt,
		})
	}
	return st
}
