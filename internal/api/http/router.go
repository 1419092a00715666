package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/http/handlers"
	"github.com/spec-kit/booking-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Packages       *handlers.PackagesHandler
	Bookings       *handlers.BookingsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The authentication gate runs after the
// global pipeline (timeout, error handling, request logging) registered in
// RegisterMiddlewares, and role guards always run after the gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/agencies/register", cfg.Auth.RegisterAgency)
	authGroup.Post("/agencies/login", cfg.Auth.LoginAgency)
	authGroup.Post("/superadmins/login", cfg.Auth.LoginSuperAdmin)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle)
	session.Post("/logout", cfg.Auth.Logout)
	session.Get("/me", cfg.Auth.Me)
	session.Post("/password/change", cfg.Auth.ChangePassword)

	app.Get("/packages", cfg.Packages.ListPublished)
	app.Get("/packages/:id", cfg.Packages.Get)

	agency := app.Group("/agency", cfg.AuthMiddleware.Handle, auth.RequireAgency())
	agency.Post("/packages", cfg.Packages.Create)
	agency.Patch("/packages/:id", cfg.Packages.Update)
	agency.Get("/packages", cfg.Packages.ListForAgency)
	agency.Get("/bookings", cfg.Bookings.ListForAgency)

	bookings := app.Group("/bookings", cfg.AuthMiddleware.Handle, auth.RequireUser())
	bookings.Post("", cfg.Bookings.Create)
	bookings.Get("", cfg.Bookings.ListForUser)
	bookings.Post("/:id/cancel", cfg.Bookings.Cancel)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireSuperAdmin())
	admin.Get("/agencies", cfg.Admin.ListAgencies)
	admin.Post("/agencies/:id/approve", cfg.Admin.ApproveAgency)
	admin.Post("/agencies/:id/suspend", cfg.Admin.SuspendAgency)
}
