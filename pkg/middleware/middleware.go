package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// XAdminIDHeader carries the identifier of the staff member operating the desk.
// It is trusted as is; authenticating staff happens in front of this service.
const XAdminIDHeader = "X-Admin-Id"

const adminContextKey = "admin_id"

// AdminID copies the X-Admin-Id header into the echo context.
func AdminID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := strings.TrimSpace(c.Request().Header.Get(XAdminIDHeader)); id != "" {
			c.Set(adminContextKey, id)
		}
		return next(c)
	}
}

// GetAdminID returns the operator id set by AdminID, or "" when the request carried none.
func GetAdminID(c echo.Context) string {
	id, _ := c.Get(adminContextKey).(string)
	return id
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	c := middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogMethod:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
				if v.Status < http.StatusInternalServerError {
					level = zapcore.WarnLevel
				}
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
	return c
}
