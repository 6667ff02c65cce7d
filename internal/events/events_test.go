package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Send(context.Context, models.Event) error {
	return errors.New("broker unavailable")
}

func TestDispatcherDeliversToAllSinksAndSwallowsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", &buf, slog.LevelDebug)
	rec := &Recorder{}

	d := NewDispatcher(log, 8, failingSink{}, rec)
	done := make(chan struct{})
	go func() {
		_ = d.Run(context.Background())
		close(done)
	}()

	d.Publish(context.Background(),
		models.Event{ID: "1", Type: models.EventOrderCreated, OrderID: "o1"},
		models.Event{ID: "2", Type: models.EventTicketCreated, TicketID: "k1"},
	)
	d.Close()
	<-done

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	assert.Contains(t, buf.String(), "event_delivery_failed")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", &buf, slog.LevelDebug)
	rec := &Recorder{}

	d := NewDispatcher(log, 1, rec)
	// Run is not started, so the second event has nowhere to go.
	d.Publish(context.Background(),
		models.Event{ID: "1", Type: models.EventOrderCreated},
		models.Event{ID: "2", Type: models.EventOrderCreated},
	)
	assert.Contains(t, buf.String(), "Event queue full")

	d.Close()
	require.NoError(t, d.Run(context.Background()))
	assert.Len(t, rec.Events(), 1)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher(logger.Discard(), 4)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), models.Event{ID: "late"})
	})
}

func TestRecorderOfType(t *testing.T) {
	rec := &Recorder{}
	rec.Publish(context.Background(),
		models.Event{Type: models.EventSessionOpened},
		models.Event{Type: models.EventTableStatusChanged},
		models.Event{Type: models.EventSessionOpened},
	)
	assert.Len(t, rec.OfType(models.EventSessionOpened), 2)

	rec.Reset()
	assert.Empty(t, rec.Events())
}
