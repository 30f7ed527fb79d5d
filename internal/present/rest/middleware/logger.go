package middleware

import (
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger logs one line per request through logger.
func RequestLogger(logger hclog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
				args = append(args, "trace_id", sc.TraceID().String())
			}
			switch {
			case v.Error != nil:
				logger.Error("request failed", append(args, "error", v.Error)...)
			case v.Status >= 500:
				logger.Warn("request", args...)
			default:
				logger.Debug("request", args...)
			}
			return nil
		},
	})
}
