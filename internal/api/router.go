// Package api exposes the POS services over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"restaurant-pos/internal/app"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/services/kitchen"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/services/table"
	"restaurant-pos/internal/services/tracking"
)

type Deps struct {
	App    *app.App
	Logger *logger.Logger
}

// New builds the echo instance with middleware, error handling and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	e.Use(echomw.Recover())
	e.Use(RequestLogger(d.Logger))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	tables := table.NewHandler(d.App.Tables, d.Logger)
	orders := order.NewHandler(d.App.Orders, d.Logger)
	tickets := kitchen.NewHandler(d.App.Kitchen, d.Logger)
	track := tracking.NewHandler(d.App.Tracking, d.Logger)

	e.GET("/health", health(d))

	t := e.Group("/tables")
	t.GET("", tables.ListTables)
	t.GET("/:id", tables.GetTable)
	t.POST("/:id/sessions", tables.OpenSession)
	t.POST("/:id/bill", tables.RequestBill)
	t.POST("/:id/reserve", tables.Reserve)
	t.POST("/:id/release", tables.Release)
	t.POST("/:id/out-of-service", tables.SetOutOfService)

	s := e.Group("/sessions")
	s.GET("/:id", tables.GetSession)
	s.POST("/:id/close", tables.CloseSession)

	o := e.Group("/orders")
	o.POST("", orders.CreateOrder)
	o.GET("/:id", orders.GetOrder)
	o.POST("/:id/status", orders.UpdateStatus)
	o.POST("/:id/cancel", orders.CancelOrder)
	o.DELETE("/:id", orders.DeleteOrder)
	o.GET("/:id/tickets", tickets.OrderTickets)

	e.POST("/tickets/:id/status", tickets.AdvanceTicket)
	e.GET("/stations/:station/tickets", tickets.StationQueue)

	e.GET("/track/:code", track.Track)
}

// health reports whether the store answers a ping.
func health(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		resp := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   d.Logger.Service(),
			"healthy":   true,
		}

		if err := d.App.Store.Ping(ctx); err != nil {
			d.Logger.Error("health_check_failed", "Store ping failed", logger.RequestID(ctx), err, nil)
			resp["status"] = "unhealthy"
			resp["healthy"] = false
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
