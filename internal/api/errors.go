package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders domain errors with the status of their code.
// Internal failures are logged and hidden behind a generic message.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		requestID := logger.RequestID(c.Request().Context())

		status, body := http.StatusInternalServerError, ErrorResponse{
			Error:     "internal server error",
			Code:      string(apperr.CodeInternal),
			RequestID: requestID,
		}

		var (
			appErr  *apperr.Error
			httpErr *echo.HTTPError
		)
		switch {
		case errors.As(err, &appErr):
			status = apperr.HTTPStatus(err)
			body.Code = string(appErr.Code)
			if status != http.StatusInternalServerError {
				body.Error = appErr.Error()
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body.Error = fmt.Sprint(httpErr.Message)
			body.Code = codeForStatus(status)
		}

		if status >= http.StatusInternalServerError {
			log.Error("request_failed", "Unhandled error", requestID, err, map[string]interface{}{
				"path": c.Request().URL.Path,
			})
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("response_failed", "Failed to write error response", requestID, err, nil)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(apperr.CodeNotFound)
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		return string(apperr.CodeValidation)
	default:
		if status >= http.StatusInternalServerError {
			return string(apperr.CodeInternal)
		}
		return http.StatusText(status)
	}
}
