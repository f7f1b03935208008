package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/api/http/handlers"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/auth"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Settings       *handlers.SettingsHandler
	Stream         *handlers.StreamHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// NewApp builds the fiber app. Route params end up in stored tickets and
// history rows, so they must not alias fasthttp's reused request buffers.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      name,
		Immutable:    true,
		ErrorHandler: ErrorHandler(logger, metrics),
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/auth/me", cfg.Users.Me)

	tickets := protected.Group("/tickets")
	// Fixed segments go before /:id so they are not captured as ticket IDs.
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/counts", cfg.Tickets.Counts)
	tickets.Get("/departments", cfg.Tickets.Departments)
	if cfg.Stream != nil {
		tickets.Get("/stream", cfg.Stream.Stream)
	}
	tickets.Post("/batch-delete", auth.RequireSuperAdmin(), cfg.Tickets.BatchDelete)
	tickets.Post("/export", cfg.Tickets.Export)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/pdf", cfg.Tickets.PDF)
	tickets.Post("/:id/actions/:action", cfg.Tickets.Action)
	tickets.Post("/:id/rename", auth.RequireSupervisor(), cfg.Tickets.Rename)
	tickets.Delete("/:id", auth.RequireSuperAdmin(), cfg.Tickets.Delete)

	settings := protected.Group("/settings")
	settings.Get("/:name", cfg.Settings.Get)
	settings.Post("/:name/items", auth.RequireSuperAdmin(), cfg.Settings.AddItem)
	settings.Put("/:name/items/:item", auth.RequireSuperAdmin(), cfg.Settings.UpdateItem)
	settings.Delete("/:name/items/:item", auth.RequireSuperAdmin(), cfg.Settings.RemoveItem)

	users := protected.Group("/users", auth.RequireSuperAdmin())
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Delete("/:id", cfg.Users.Delete)
}
