// handlers/admin_routes.go
package handlers

import (
	"mission-service/middleware"
	"mission-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, catalog *services.CatalogService, redemption *services.RedemptionService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Get("/missions", catalog.ListMissions)
	adminGroup.Post("/missions", catalog.CreateMission)
	adminGroup.Put("/missions/:id", catalog.UpdateMission)
	adminGroup.Put("/missions/:id/status", catalog.SetMissionStatus)
	adminGroup.Delete("/missions/:id", catalog.DeleteMission)

	adminGroup.Post("/currencies", catalog.CreateCurrency)

	adminGroup.Post("/rewards", redemption.CreateReward)
	adminGroup.Put("/redemptions/:id", redemption.ReviewRedemption)
}

func SetupRedemptionRoutes(app *fiber.App, redemption *services.RedemptionService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/rewards", redemption.ListRewards)
	securedGroup.Post("/rewards/:id/redeem", redemption.Redeem)
	securedGroup.Get("/redemptions", redemption.MyRedemptions)
}
