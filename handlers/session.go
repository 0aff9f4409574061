package handlers

import (
	"wager-session-system/middleware"
	"wager-session-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService, statsService *services.StatsService, escrowService *services.EscrowService) {
	// 🔓 Public reads
	app.Get("/escrow", escrowService.GetEscrowAccount)
	app.Get("/sessions/active", sessionService.GetActiveSessions)
	app.Get("/sessions/completed", sessionService.GetCompletedSessions)
	app.Get("/sessions/:id", sessionService.GetSessionByID)
	app.Get("/players/:account/sessions", sessionService.GetSessionsByPlayer)
	app.Get("/players/:account/stats", statsService.GetStats)
	app.Get("/leaderboard", statsService.GetLeaderboard)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Joins (account-ownership checked inside the service)
	secured.Post("/sessions/house", sessionService.JoinHousePlay)
	secured.Post("/sessions/pvp", sessionService.JoinPvp)
	secured.Post("/sessions/pvp/:id/join", sessionService.JoinPvpSecond)
	secured.Post("/sessions/tournament", sessionService.JoinTournamentSession)

	// Win reporting (win-reporter scope checked inside the service)
	secured.Post("/sessions/:id/win", sessionService.RecordWin)

	// Credential rotation (current account authority required)
	secured.Put("/accounts/:account/credential", sessionService.Auth.RotateCredentialHandler)
}
