package kitchen

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Handler handles HTTP requests from station displays
type Handler struct {
	router *Router
	logger *logger.Logger
}

// NewHandler creates a new kitchen handler
func NewHandler(router *Router, log *logger.Logger) *Handler {
	return &Handler{
		router: router,
		logger: log,
	}
}

// AdvanceTicket handles POST /tickets/:id/status
func (h *Handler) AdvanceTicket(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("validation_failed", "Failed to parse request body", logger.RequestID(ctx), map[string]interface{}{
			"error": err.Error(),
		})
		return apperr.Validation("body", "invalid JSON body")
	}

	tk, err := h.router.AdvanceTicket(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tk)
}

// OrderTickets handles GET /orders/:id/tickets
func (h *Handler) OrderTickets(c echo.Context) error {
	tickets, err := h.router.OrderTickets(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

// StationQueue handles GET /stations/:station/tickets
func (h *Handler) StationQueue(c echo.Context) error {
	tickets, err := h.router.StationQueue(c.Request().Context(), c.Param("station"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}
