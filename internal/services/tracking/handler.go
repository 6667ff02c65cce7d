package tracking

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/logger"
)

// Handler handles HTTP requests for the tracking service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Track handles GET /track/:code
func (h *Handler) Track(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	h.logger.Debug("request_received", "Track order request", logger.RequestID(ctx), map[string]interface{}{
		"public_code": code,
	})

	status, err := h.service.Track(ctx, code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}
