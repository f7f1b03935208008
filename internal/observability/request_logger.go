package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestIDKey is the fiber local holding the request ID.
const RequestIDKey = "requestid"

// UnmatchedRoute is the route label for requests no endpoint handled.
const UnmatchedRoute = "unmatched"

// RouteLabel returns the matched route pattern. Requests that only reached
// global middleware, or no handler at all, share UnmatchedRoute so scans of
// random paths cannot grow the label set.
func RouteLabel(c *fiber.Ctx) string {
	r := c.Route()
	if r == nil || len(r.Handlers) == 0 || r.Path == "" || r.Path == "/" {
		return UnmatchedRoute
	}
	return r.Path
}

// RequestLogger logs one line per request and feeds the request metrics. The
// route label uses the matched route pattern so IDs do not explode cardinality.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		metrics.RecordRequest(RouteLabel(c), c.Method(), status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.IP()),
		}
		if id, ok := c.Locals(RequestIDKey).(string); ok && id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		logger.Info("request", fields...)
		return err
	}
}
