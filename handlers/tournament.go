package handlers

import (
	"wager-session-system/middleware"
	"wager-session-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, feeService *services.FeeService) {
	// 🔓 Public reads
	app.Get("/fees", feeService.GetAllFees)
	app.Get("/fees/:mode", feeService.GetFee)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/tournaments/:id/register", tournamentService.Register)
}
