package order

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

type cancelRequest struct {
	ActorID *string `json:"actor_id,omitempty"`
}

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	requestID := logger.RequestID(ctx)

	h.logger.Debug("order_received", "Received order creation request", requestID, map[string]interface{}{
		"content_length": c.Request().ContentLength,
		"remote_addr":    c.RealIP(),
	})

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("validation_failed", "Failed to parse request body", requestID, map[string]interface{}{
			"error": err.Error(),
		})
		return apperr.Validation("body", "invalid JSON body")
	}

	o, err := h.service.Create(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

// GetOrder handles GET /orders/:id
func (h *Handler) GetOrder(c echo.Context) error {
	d, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateStatus handles POST /orders/:id/status
func (h *Handler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "invalid JSON body")
	}

	o, err := h.service.AdvanceStatus(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// CancelOrder handles POST /orders/:id/cancel
func (h *Handler) CancelOrder(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "invalid JSON body")
	}

	o, err := h.service.Cancel(c.Request().Context(), c.Param("id"), req.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// DeleteOrder handles DELETE /orders/:id
func (h *Handler) DeleteOrder(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
