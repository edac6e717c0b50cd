// Package httpapi is a thin REST adapter around the scan engine: it
// parses requests, calls into scheduler/executor/query, and shapes
// responses. No scan logic lives here.
package httpapi

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"seoscan/internal/config"
	"seoscan/internal/eventbus"
	"seoscan/internal/metrics"
	"seoscan/internal/query"
	"seoscan/internal/scheduler"
	"seoscan/internal/store"
)

// Server wires the fiber app to its dependencies.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

// NewServer builds the fiber app and registers every route in spec.md
// §6's REST table.
func NewServer(cfg *config.Config, st *store.Store, sched *scheduler.Scheduler, qsvc *query.Service, bus *eventbus.Bus, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("store", st)
		c.Locals("scheduler", sched)
		c.Locals("query", qsvc)
		c.Locals("bus", bus)
		c.Locals("config", cfg)
		return c.Next()
	})

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RecordRequest(c.Method(), c.Path(), status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	scans := app.Group("/api/scans")
	scans.Post("", createScanHandler)
	scans.Get("", listScansHandler)
	scans.Get("/queue/state", queueStateHandler)
	scans.Get("/progress/live", liveProgressHandler)
	scans.Get("/:id", getScanHandler)
	scans.Delete("/:id", deleteScanHandler)
	scans.Post("/:id/cancel", cancelScanHandler)
	scans.Post("/:id/retry", retryScanHandler)
	scans.Get("/:id/pages", listPagesHandler)
	scans.Get("/:id/pages/:pageId", getPageHandler)

	return &Server{app: app, config: cfg, logger: logger}
}

// Listen starts the HTTP server on the configured host:port.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// App returns the underlying fiber app, for use with app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}
