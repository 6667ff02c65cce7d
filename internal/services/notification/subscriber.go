// Package notification renders domain events from the broker as
// human-readable notifications.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// Source delivers raw event bodies to a handler until ctx ends.
type Source interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber handles notification messages
type Subscriber struct {
	source Source
	out    io.Writer
	logger *logger.Logger
}

// NewSubscriber creates a new notification subscriber writing to stdout
func NewSubscriber(source Source, log *logger.Logger) *Subscriber {
	return &Subscriber{
		source: source,
		out:    os.Stdout,
		logger: log,
	}
}

// Start consumes events until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.handleNotification)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	s.logger.Info("graceful_shutdown", "Stopping notification subscriber", requestID, nil)
	if closeErr := s.source.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	return err
}

// handleNotification processes one domain event
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	var ev models.Event
	if err := messaging.ParseMessage(body, &ev); err != nil {
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	line, ok := FormatEvent(ev)
	if !ok {
		s.logger.Debug("notification_skipped", "Event has no customer-facing notification", ev.RequestID, map[string]interface{}{
			"event_type": string(ev.Type),
		})
		return nil
	}

	if _, err := fmt.Fprintln(s.out, line); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	s.logger.Info("notification_displayed", "Notification displayed to user", ev.RequestID, map[string]interface{}{
		"event_type": string(ev.Type),
		"entity_id":  ev.EntityID(),
		"old_status": ev.OldStatus,
		"new_status": ev.NewStatus,
	})
	return nil
}

// FormatEvent renders ev as a single human-readable line.
func FormatEvent(ev models.Event) (string, bool) {
	ts := ev.OccurredAt.Format(timestampLayout)
	order := ev.PublicCode
	if order == "" {
		order = ev.OrderID
	}

	switch ev.Type {
	case models.EventOrderCreated:
		return fmt.Sprintf("🧾 [%s] Order %s received, total %s.", ts, order, formatCents(ev.TotalCents)), true
	case models.EventOrderStatusChanged:
		return formatOrderStatus(ts, order, ev), true
	case models.EventTicketCreated:
		return fmt.Sprintf("🔔 [%s] Ticket #%d sent to %s.", ts, ev.TicketNumber, ev.Station), true
	case models.EventTicketStatusChanged:
		return fmt.Sprintf("👨‍🍳 [%s] Ticket #%d at %s: %s -> %s.", ts, ev.TicketNumber, ev.Station, ev.OldStatus, ev.NewStatus), true
	case models.EventSessionOpened:
		return fmt.Sprintf("🪑 [%s] Table %s seated.", ts, ev.TableID), true
	case models.EventSessionClosed:
		return fmt.Sprintf("💳 [%s] Table %s paid %s.", ts, ev.TableID, formatCents(ev.TotalCents)), true
	default:
		return "", false
	}
}

func formatOrderStatus(ts, order string, ev models.Event) string {
	switch models.OrderStatus(ev.NewStatus) {
	case models.OrderInPrep:
		return fmt.Sprintf("🍳 [%s] Order %s is now being prepared.", ts, order)
	case models.OrderReady:
		return fmt.Sprintf("✅ [%s] Order %s is ready for pickup/delivery!", ts, order)
	case models.OrderDelivered:
		return fmt.Sprintf("🎉 [%s] Order %s has been delivered! Thank you for your business.", ts, order)
	case models.OrderCancelled:
		return fmt.Sprintf("❌ [%s] Order %s has been cancelled.", ts, order)
	default:
		return fmt.Sprintf("📋 [%s] Order %s status changed from '%s' to '%s'.", ts, order, ev.OldStatus, ev.NewStatus)
	}
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
