package tracking_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/testutil"
)

func TestTrackByPublicCode(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	o, err := env.Orders.Create(ctx, testutil.Takeaway(testutil.ProductLine(testutil.Burger, 1), testutil.ProductLine(testutil.Cola, 1)))
	require.NoError(t, err)
	tickets, err := env.Kitchen.OrderTickets(ctx, o.ID)
	require.NoError(t, err)
	_, err = env.Kitchen.AdvanceTicket(ctx, tickets[0].ID, models.UpdateStatusRequest{Status: "IN_PROGRESS"})
	require.NoError(t, err)

	st, err := env.Tracking.Track(ctx, "  "+strings.ToLower(o.PublicCode)+" ")
	require.NoError(t, err)

	assert.Equal(t, o.PublicCode, st.PublicCode)
	assert.Equal(t, "IN_PREP", st.CurrentStatus)
	assert.Equal(t, "TAKEAWAY", st.TakeMode)
	require.Len(t, st.History, 3)
	assert.Equal(t, "CREATED", st.History[0].Status)
	assert.Equal(t, "IN_PREP", st.History[2].Status)

	require.Len(t, st.Stations, 2)
	assert.Equal(t, "BAR", st.Stations[0].Station)
	assert.Equal(t, "IN_PROGRESS", st.Stations[0].Status)
	require.NotNil(t, st.Stations[0].StartedAt)
	assert.Equal(t, "GRILL", st.Stations[1].Station)
	assert.Equal(t, "PENDING", st.Stations[1].Status)
	assert.Nil(t, st.Stations[1].StartedAt)
}

func TestTrackErrors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Tracking.Track(ctx, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.Tracking.Track(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
