package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/http/handlers"
	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Donors         *handlers.DonorsHandler
	StaffDonors    *handlers.StaffDonorsHandler
	Requests       *handlers.RequestsHandler
	Inventory      *handlers.InventoryHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	// Public.
	api.Get("/inventory", cfg.Inventory.Inventory)
	api.Get("/donors/count", cfg.Inventory.DonorCount)
	api.Post("/donors/register", cfg.Donors.Register)
	api.Get("/donors/verify-email", cfg.Donors.VerifyEmail)
	api.Post("/requests", cfg.Requests.Create)

	authGroup := api.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/donors/login", cfg.Donors.Login)
	authGroup.Post("/requestor/code", cfg.Requests.SendAccessCode)
	authGroup.Post("/requestor/session", cfg.Requests.StartSession)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Staff.ChangePassword)

	donor := api.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireDonor())
	donor.Get("", cfg.Donors.Me)
	donor.Patch("", cfg.Donors.UpdateProfile)
	donor.Put("/availability", cfg.Donors.SetAvailability)
	donor.Get("/donations", cfg.Donors.Donations)

	requestor := api.Group("/requestor", cfg.AuthMiddleware.Handle, auth.RequireRequestor())
	requestor.Delete("/session", cfg.Requests.EndSession)
	requestor.Get("/requests", cfg.Requests.ListMine)
	requestor.Post("/requests/:id/cancel", cfg.Requests.CancelMine)

	staff := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/donors", cfg.StaffDonors.List)
	staff.Get("/donors/:id", cfg.StaffDonors.Get)
	staff.Put("/donors/:id/verified", cfg.StaffDonors.Verify)
	staff.Put("/donors/:id/availability", cfg.StaffDonors.SetAvailability)
	staff.Get("/donors/:id/donations", cfg.StaffDonors.Donations)
	staff.Post("/donors/:id/donations", cfg.StaffDonors.RecordDonation)
	staff.Get("/requests", cfg.Requests.List)
	staff.Get("/requests/:id", cfg.Requests.Get)
	staff.Put("/requests/:id/status", cfg.Requests.UpdateStatus)
	staff.Get("/reports/:kind", cfg.Reports.Export)
	staff.Get("/activity", cfg.Reports.Activity)

	// Route-level guard: a Group("") guard would apply to every /api/admin route.
	adminOnly := auth.RequireStaffRole(domain.StaffRoleAdmin)
	staff.Put("/donors/:id/active", adminOnly, cfg.StaffDonors.SetActive)
	staff.Post("/staff", adminOnly, cfg.Staff.CreateStaff)
	staff.Get("/staff", adminOnly, cfg.Staff.ListStaff)
	staff.Patch("/staff/:id", adminOnly, cfg.Staff.UpdateStaff)
}
