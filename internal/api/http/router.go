package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drona-gyawali/Supportix/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Directory *handlers.DirectoryHandler
	Tasks     *handlers.TasksHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:key", cfg.Tickets.GetTicket)
	tickets.Get("/:key/history", cfg.Tickets.History)
	tickets.Post("/:key/assign", cfg.Tickets.Assign)
	tickets.Get("/:key/queue-position", cfg.Tickets.QueuePosition)
	tickets.Post("/:key/transition", cfg.Tickets.Transition)
	tickets.Post("/:key/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:key/rules/run", cfg.Tickets.RunRules)

	app.Post("/departments", cfg.Directory.CreateDepartment)
	app.Get("/departments", cfg.Directory.ListDepartments)
	app.Post("/agents", cfg.Directory.CreateAgent)
	app.Get("/agents/:id", cfg.Directory.GetAgent)
	app.Post("/customers", cfg.Directory.CreateCustomer)
	app.Get("/customers/:id", cfg.Directory.GetCustomer)

	app.Post("/tasks/:name/run", cfg.Tasks.Run)
}
