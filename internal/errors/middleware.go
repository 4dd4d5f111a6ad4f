package errors

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// errorResponse is the wire shape for error replies. The builder itself is
// not marshaled; its JSON encoding walks internals the client has no use for.
type errorResponse struct {
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Timestamp  time.Time `json:"timestamp"`
}

func toResponse(err *AppError) errorResponse {
	return errorResponse{
		Category:   string(err.Category),
		Message:    err.Error(),
		HTTPStatus: err.HTTPStatus,
		Timestamp:  err.Timestamp,
	}
}

// ErrorHandler is a Gin middleware that provides centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			appErr := ToAppError(err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, toResponse(appErr))
			return
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses.
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, toResponse(appErr))
	})
}

// LogError logs an AppError with request context.
func LogError(c *gin.Context, err *AppError) {
	if err == nil {
		return
	}

	attrs := []any{
		"category", string(err.Category),
		"http_status", err.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"ip", c.ClientIP(),
	}

	if cause := err.Unwrap(); cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}

	switch err.Category {
	case CategoryValidation, CategoryRateLimit:
		slog.Warn(err.Error(), attrs...)
	default:
		slog.Error(err.Error(), attrs...)
	}
}
