package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wager-session-system/handlers"
	"wager-session-system/middleware"
	"wager-session-system/models"
	"wager-session-system/services"
	"wager-session-system/utils"
	"wager-session-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitArchive(); err != nil {
		log.Fatal("failed to initialize settlement archive storage:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.SystemState{},
		&models.AccountCredential{},
		&models.FeeRecord{},
		&models.Tournament{},
		&models.TournamentPlayer{},
		&models.GameSession{},
		&models.SessionPlayer{},
		&models.PlayerStats{},
		&models.EscrowTransfer{},
		&models.EscrowCheckpoint{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledger := services.NewLedgerClient()
	authorizer := services.NewAuthorizer(db, ledger)
	escrowService := services.NewEscrowService(db, ledger, authorizer)
	feeService := services.NewFeeService(db, authorizer)
	tournamentService := services.NewTournamentService(db, authorizer, escrowService, feeService)
	sessionService := services.NewSessionService(db, authorizer, escrowService, feeService)
	statsService := services.NewStatsService(db)

	// --- Escrow reconciliation polling ---
	reconClient := workers.NewEscrowReconClient(db, ledger, escrowService.AccountID)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollEscrow(ctx, reconClient, 30*time.Second)

	sessionService.StartSettlementArchiver()

	// ✅ Setup routes — enforced Gateway auth globally, user context per group
	handlers.SetupSessionRoutes(app, sessionService, statsService, escrowService)
	handlers.SetupTournamentRoutes(app, tournamentService, feeService)
	handlers.SetupAdminRoutes(app, escrowService, feeService, tournamentService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Escrow account: %s", escrowService.AccountID)
	log.Println("✅ Escrow reconciliation polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
