package table

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Handler handles HTTP requests for tables and sessions
type Handler struct {
	manager *Manager
	logger  *logger.Logger
}

// NewHandler creates a new table handler
func NewHandler(manager *Manager, log *logger.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  log,
	}
}

// ListTables handles GET /tables
func (h *Handler) ListTables(c echo.Context) error {
	tables, err := h.manager.ListTables(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tables)
}

// GetTable handles GET /tables/:id
func (h *Handler) GetTable(c echo.Context) error {
	tbl, err := h.manager.GetTable(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// OpenSession handles POST /tables/:id/sessions
func (h *Handler) OpenSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("validation_failed", "Failed to parse request body", logger.RequestID(ctx), map[string]interface{}{
			"error": err.Error(),
		})
		return apperr.Validation("body", "invalid JSON body")
	}

	sess, err := h.manager.OpenSession(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

// RequestBill handles POST /tables/:id/bill
func (h *Handler) RequestBill(c echo.Context) error {
	tbl, err := h.manager.RequestBill(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// Reserve handles POST /tables/:id/reserve
func (h *Handler) Reserve(c echo.Context) error {
	tbl, err := h.manager.Reserve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// Release handles POST /tables/:id/release
func (h *Handler) Release(c echo.Context) error {
	tbl, err := h.manager.Release(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// SetOutOfService handles POST /tables/:id/out-of-service
func (h *Handler) SetOutOfService(c echo.Context) error {
	tbl, err := h.manager.SetOutOfService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// GetSession handles GET /sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.manager.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// CloseSession handles POST /sessions/:id/close
func (h *Handler) CloseSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CloseSessionRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("validation_failed", "Failed to parse request body", logger.RequestID(ctx), map[string]interface{}{
			"error": err.Error(),
		})
		return apperr.Validation("body", "invalid JSON body")
	}

	sess, err := h.manager.Close(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}
