package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mission-service/handlers"
	"mission-service/middleware"
	"mission-service/models"
	"mission-service/services"
	"mission-service/workers"

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

	// 🔐 GLOBAL: only Gateway (or service-token) requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Currency{},
		&models.UserCurrency{},
		&models.Mission{},
		&models.MissionReward{},
		&models.UserMission{},
		&models.Squad{},
		&models.SquadMember{},
		&models.SquadMissionProgress{},
		&models.LearnerUser{},
		&models.RedeemableReward{},
		&models.RewardRedemption{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	catalogService := services.NewCatalogService(db)
	settlementService := services.NewSettlementService(db)
	squadService := services.NewSquadMissionService(db, catalogService, settlementService)
	resetService := services.NewResetService(db, catalogService, squadService)
	trackingService := services.NewTrackingService(db, resetService, settlementService, squadService)
	redemptionService := services.NewRedemptionService(db)

	accountsServiceURL := os.Getenv("ACCOUNTS_SERVICE_URL")
	if accountsServiceURL == "" {
		log.Fatal("ACCOUNTS_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("MISSION_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("MISSION_SERVICE_TOKEN environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewProfileSyncWorker(db, accountsServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	trackingService.StartRetentionScheduler()

	handlers.SetupMissionRoutes(app, trackingService, resetService, squadService)
	handlers.SetupRedemptionRoutes(app, redemptionService)
	handlers.SetupAdminRoutes(app, catalogService, redemptionService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Mission service running on http://localhost:%s", port)
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Retention sweep scheduled (daily)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
