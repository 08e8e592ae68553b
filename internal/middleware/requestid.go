package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mikews93/deusrex-sub000/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a unique id and binds a request-scoped
// logger carrying it.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(RequestIDHeader, requestID)

		ctxLogger := logger.GetLogger().With(zap.String("request_id", requestID))
		c.Set("logger", ctxLogger)

		return next(c)
	}
}
