package handlers

import (
	"wager-session-system/middleware"
	"wager-session-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, escrowService *services.EscrowService, feeService *services.FeeService, tournamentService *services.TournamentService) {
	// 🔒 Admin-only routes (owner/admin scope checked inside the services)
	admin := app.Group("/admin", middleware.UserContextMiddleware())

	admin.Post("/bootstrap", escrowService.Bootstrap)
	admin.Put("/fees/:mode", feeService.SetFee)
	admin.Post("/tournaments", tournamentService.CreateTournament)
	admin.Get("/tournaments", tournamentService.GetAllTournaments)
	admin.Get("/escrow/checkpoint", escrowService.GetCheckpoint)
}
