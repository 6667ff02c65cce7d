package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("pos-service", &buf, slog.LevelDebug)

	log.Error("order_create_failed", "Failed to create order", "req-1", errors.New("boom"), map[string]interface{}{
		"order_id": "o-1",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Failed to create order", entry["msg"])
	assert.Equal(t, "pos-service", entry["service"])
	assert.Equal(t, "order_create_failed", entry["action"])
	assert.Equal(t, "req-1", entry["request_id"])

	details, ok := entry["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "o-1", details["order_id"])

	errGroup, ok := entry["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", errGroup["msg"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("pos-service", &buf, slog.LevelInfo)

	log.Debug("noise", "should not appear", "", nil)
	assert.Zero(t, buf.Len())

	log.Info("service_started", "started", "", nil)
	assert.NotZero(t, buf.Len())
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
