// Package httpserver builds the Fiber app the gateway serves its HTTP
// surface on: unified error handling, an access log, and panic recovery,
// the way the original http/http.go wired it minus the embedded SPA,
// pprof, and swagger UI this gateway has no use for.
package httpserver

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// New builds a Fiber app with unified JSON error handling, request IDs,
// an access log, and panic recovery already wired in. Route registration
// is left to the caller (see internal/api.Server.Route).
func New(errorLogger *logrus.Logger, accessLogger *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			errorLogger.WithFields(logrus.Fields{
				"path":   c.Path(),
				"ip":     c.IP(),
				"method": c.Method(),
			}).WithError(err).Error("fiber error")

			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"code":  code,
				"error": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(AccessLogMiddleware(accessLogger))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			errorLogger.WithFields(logrus.Fields{
				"path":   c.Path(),
				"ip":     c.IP(),
				"method": c.Method(),
			}).Errorf("fiber panic recovered: %v", e)
		},
	}))

	return app
}

// AccessLogMiddleware logs one structured entry per request to
// accessLogger, the way the original app kept HTTP access logs separate
// from its run/error log.
func AccessLogMiddleware(accessLogger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		accessLogger.WithFields(logrus.Fields{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"ip":          c.IP(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  c.GetRespHeader(fiber.HeaderXRequestID),
		}).Info("http request")

		return err
	}
}
