package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Monitor        *handlers.MonitorHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	Settings       *handlers.SettingsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Post("/monitor/start", cfg.Monitor.Start)
	protected.Post("/monitor/stop", cfg.Monitor.Stop)
	protected.Get("/monitor/status", cfg.Monitor.Status)
	protected.Get("/monitor/sessions", cfg.Monitor.Sessions)

	protected.Post("/tickets/:id/process", cfg.Tickets.Process)
	protected.Get("/tickets/:id/history", cfg.Tickets.History)

	protected.Get("/stats", cfg.Stats.Stats)

	protected.Get("/settings", cfg.Settings.Get)
	protected.Put("/settings", cfg.Settings.Update)
}
