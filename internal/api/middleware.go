package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/logger"
)

// RequestLogger tags every request with an id, stores it in the request
// context and logs start and completion.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = logger.GenerateRequestID()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), requestID)))

			start := time.Now()
			log.Debug("request_started", fmt.Sprintf("%s %s", req.Method, req.URL.Path), requestID, map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"remote_addr": c.RealIP(),
				"user_agent":  req.UserAgent(),
			})

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := map[string]interface{}{
				"method":      req.Method,
				"route":       c.Path(),
				"status_code": status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			msg := fmt.Sprintf("%s %s %d", req.Method, req.URL.Path, status)
			switch {
			case status >= 500:
				log.Error("request_completed", msg, requestID, err, fields)
			case status >= 400:
				log.Warn("request_completed", msg, requestID, fields)
			default:
				log.Info("request_completed", msg, requestID, fields)
			}
			return nil
		}
	}
}
