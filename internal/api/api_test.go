package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/api"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/tracking"
	"restaurant-pos/internal/testutil"
)

type client struct {
	t *testing.T
	e *echo.Echo
}

func newClient(t *testing.T) (*client, *testutil.Env) {
	env := testutil.NewEnv(t)
	e := api.New(&api.Deps{App: env.App, Logger: logger.Discard()})
	return &client{t: t, e: e}, env
}

func (c *client) do(method, path, body string, out interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestDineInFlow(t *testing.T) {
	c, _ := newClient(t)

	var sess models.TableSession
	rec := c.do(http.MethodPost, "/tables/t1/sessions", `{"guest_count":3}`, &sess)
	require.Equal(t, http.StatusCreated, rec.Code)

	var o models.Order
	rec = c.do(http.MethodPost, "/orders", `{
		"take_mode": "DINE_IN",
		"table_session_id": "`+sess.ID+`",
		"items": [
			{"product_id": "burger", "qty": 1, "modifier_ids": ["bacon"]},
			{"product_id": "cola", "qty": 2}
		]
	}`, &o)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1900, o.TotalCents)

	var tickets []models.KitchenTicket
	rec = c.do(http.MethodGet, "/orders/"+o.ID+"/tickets", "", &tickets)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tickets, 2)

	for _, tk := range tickets {
		for _, st := range []string{"IN_PROGRESS", "READY"} {
			rec = c.do(http.MethodPost, "/tickets/"+tk.ID+"/status", `{"status":"`+st+`"}`, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}
	}

	var status tracking.Status
	rec = c.do(http.MethodGet, "/track/"+strings.ToLower(o.PublicCode), "", &status)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", status.CurrentStatus)
	assert.Len(t, status.Stations, 2)

	var tbl models.Table
	rec = c.do(http.MethodPost, "/tables/t1/bill", "", &tbl)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.TableBillRequested, tbl.Status)

	var closed models.TableSession
	rec = c.do(http.MethodPost, "/sessions/"+sess.ID+"/close", `{"payment_method":"card","tip_cents":250}`, &closed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1900, closed.SubtotalCents)
	assert.EqualValues(t, 2150, closed.TotalCents)

	rec = c.do(http.MethodGet, "/tables/t1", "", &tbl)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TableAvailable, tbl.Status)
}

func TestErrorResponses(t *testing.T) {
	c, _ := newClient(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"broken body", http.MethodPost, "/orders", `{"items":`, http.StatusBadRequest, "VALIDATION"},
		{"empty order", http.MethodPost, "/orders", `{"take_mode":"TAKEAWAY","customer_name":"Ada","items":[]}`, http.StatusBadRequest, "VALIDATION"},
		{"bad coupon", http.MethodPost, "/orders", `{"take_mode":"TAKEAWAY","customer_name":"Ada","coupon_code":"OLD","items":[{"product_id":"cola","qty":1}]}`, http.StatusUnprocessableEntity, "COUPON_INVALID"},
		{"missing order", http.MethodGet, "/orders/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"too many guests", http.MethodPost, "/tables/t2/sessions", `{"guest_count":5}`, http.StatusBadRequest, "VALIDATION"},
		{"bill without session", http.MethodPost, "/tables/t2/bill", "", http.StatusConflict, "ILLEGAL_TRANSITION"},
		{"unknown station", http.MethodGet, "/stations/pastry/tickets", "", http.StatusBadRequest, "VALIDATION"},
		{"unknown route", http.MethodGet, "/menu", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body api.ErrorResponse
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderXRequestID, "req-42")
			rec := httptest.NewRecorder()
			c.e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, "req-42", body.RequestID)
			assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
		})
	}
}

func TestDeleteOrder(t *testing.T) {
	c, _ := newClient(t)

	var o models.Order
	rec := c.do(http.MethodPost, "/orders", `{"take_mode":"TAKEAWAY","customer_name":"Ada","items":[{"combo_id":"burger-meal","qty":1}]}`, &o)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodDelete, "/orders/"+o.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, "/orders/"+o.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	c, _ := newClient(t)

	var body map[string]interface{}
	rec := c.do(http.MethodGet, "/health", "", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["healthy"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
