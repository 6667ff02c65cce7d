package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkKeysByEntity(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, topic: "pos.events", logger: logger.Discard()}

	ev := models.Event{
		ID:         "e1",
		Type:       models.EventTicketStatusChanged,
		OccurredAt: time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC),
		OrderID:    "o1",
		TicketID:   "k1",
		Station:    models.StationBar,
		OldStatus:  "PENDING",
		NewStatus:  "IN_PROGRESS",
	}
	require.NoError(t, sink.Send(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "k1", string(w.msgs[0].Key))

	var decoded models.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ev.Type, decoded.Type)
	assert.Equal(t, models.StationBar, decoded.Station)
}

func TestKafkaSinkWrapsWriteError(t *testing.T) {
	sink := &KafkaSink{writer: &fakeWriter{err: errors.New("no leader")}, topic: "pos.events", logger: logger.Discard()}
	err := sink.Send(context.Background(), models.Event{ID: "e1", Type: models.EventOrderCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leader")
}

func TestParseMessageMarksDecodeErrorsPermanent(t *testing.T) {
	var ev models.Event
	err := ParseMessage([]byte("{not json"), &ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)

	require.NoError(t, ParseMessage([]byte(`{"id":"e1","type":"order.created"}`), &ev))
	assert.Equal(t, models.EventOrderCreated, ev.Type)
}
