package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"dmsapi/internal/logging"
	"dmsapi/internal/model"
)

// Logger logs each HTTP request as one JSON line on stdout.
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter logs each HTTP request as one JSON line on w with
// request_id, method, path, status and latency in milliseconds. The "ts"
// field is rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	logger := logging.New(w, "info", loc)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []any{
			"request_id", rid,
			"method", c.Method(),
			// path only; query strings may carry share PINs
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds()) / 1000,
		}
		if actor, ok := c.Locals(ActorLocalKey).(model.Actor); ok && actor.UserID != "" {
			attrs = append(attrs, "user_id", actor.UserID)
		}
		logger.Info("http_request", attrs...)

		return err
	}
}
