package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeWindowContains(t *testing.T) {
	// 2024-06-05 is a Wednesday
	at := func(hh, mm int) time.Time { return time.Date(2024, 6, 5, hh, mm, 0, 0, time.UTC) }

	tests := []struct {
		name   string
		window TimeWindow
		at     time.Time
		want   bool
	}{
		{"empty window is always on", TimeWindow{}, at(3, 0), true},
		{"inside afternoon window", TimeWindow{Start: "15:00", End: "18:00"}, at(16, 30), true},
		{"end is exclusive", TimeWindow{Start: "15:00", End: "18:00"}, at(18, 0), false},
		{"before window", TimeWindow{Start: "15:00", End: "18:00"}, at(14, 59), false},
		{"wraps midnight late", TimeWindow{Start: "22:00", End: "02:00"}, at(23, 15), true},
		{"wraps midnight early", TimeWindow{Start: "22:00", End: "02:00"}, at(1, 0), true},
		{"wraps midnight outside", TimeWindow{Start: "22:00", End: "02:00"}, at(12, 0), false},
		{"weekday match", TimeWindow{Weekdays: []time.Weekday{time.Wednesday}}, at(12, 0), true},
		{"weekday mismatch", TimeWindow{Weekdays: []time.Weekday{time.Monday, time.Friday}}, at(12, 0), false},
		{"malformed clock never matches", TimeWindow{Start: "25:99", End: "02:00"}, at(1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(tt.at))
		})
	}
}

func TestTargets(t *testing.T) {
	assert.True(t, Targets(nil, "any"))
	assert.True(t, Targets([]string{"a", "b"}, "b"))
	assert.False(t, Targets([]string{"a"}, "b"))
}
