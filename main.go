package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"doctor-portal-server/internal/analysis"
	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/config"
	"doctor-portal-server/internal/handlers"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/notify"
	"doctor-portal-server/internal/routes"
)

func main() {
	// Load environment variables; a missing .env is fine in production
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Error creating upload directory")
	}

	// Chat plumbing: presence registry, negotiation service, websocket gateway
	registry := chat.NewRegistry()
	service := chat.NewService(chat.NewGormStore(db), registry, log)
	gateway := chat.NewGateway(service, registry, log)

	// Unread-message digest notifications
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	batcher := notify.NewBatcher(notify.NewGormStore(db), registry, cfg.NotifyInterval, log)
	go batcher.Run(ctx)

	var verifier handlers.ExternalAuthVerifier
	if g := handlers.NewGoogleVerifier(cfg.Google); g != nil {
		verifier = g
	}

	var summarizer analysis.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = analysis.NewOpenAISummarizer(cfg.OpenAI)
	}

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, routes.Dependencies{
		Registry:   registry,
		Service:    service,
		Gateway:    gateway,
		Verifier:   verifier,
		Summarizer: summarizer,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := router.Run(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
