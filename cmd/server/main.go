package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/relaypost/relaypost/configs"
	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/adapters/instagram"
	"github.com/relaypost/relaypost/internal/adapters/telegram"
	"github.com/relaypost/relaypost/internal/adapters/tiktok"
	"github.com/relaypost/relaypost/internal/adapters/youtube"
	"github.com/relaypost/relaypost/internal/api/handlers"
	"github.com/relaypost/relaypost/internal/api/middleware"
	job "github.com/relaypost/relaypost/internal/jobs"
	"github.com/relaypost/relaypost/internal/queue"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/internal/service"
	"github.com/relaypost/relaypost/pkg/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	credentialVault, err := vault.New(cfg.SecretKey, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	registry := adapters.NewRegistry()
	for _, adapter := range []adapters.Adapter{
		instagram.New(),
		tiktok.New(cfg.TiktokClientKey, cfg.TiktokClientSecret),
		youtube.New(cfg.GoogleClientID, cfg.GoogleClientSecret),
		telegram.New(),
	} {
		if err := registry.Register(adapter); err != nil {
			log.Fatalf("Failed to register adapter: %v", err)
		}
	}

	postRepo := repository.NewPostRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	resultRepo := repository.NewPublishResultRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	auditRepo := repository.NewRefreshAuditRepository(db)

	storage := service.NewR2Storage(*cfg)
	resolver := service.NewChannelResolver(channelRepo)
	cleanupScheduler := queue.NewCleanupScheduler(client, cfg.Scheduler.CleanupDelay)
	publishService := service.NewPublishService(postRepo, resultRepo, mediaAssetRepo, resolver, registry, credentialVault, cleanupScheduler)
	retentionService := service.NewRetentionService(postRepo, resultRepo, mediaAssetRepo, storage)
	channelService := service.NewChannelService(channelRepo)

	publishScheduler := job.NewPublishScheduler(postRepo, publishService, cfg.Scheduler.TickInterval, cfg.Scheduler.BatchSize)
	refreshJob := job.NewTokenRefreshJob(channelRepo, auditRepo, registry, credentialVault,
		cfg.Scheduler.RefreshInterval, cfg.Scheduler.RefreshLookahead, cfg.Scheduler.RefreshDelay)

	if err := publishScheduler.Start(); err != nil {
		log.Fatalf("Failed to start publish scheduler: %v", err)
	}
	defer publishScheduler.Stop()
	if err := refreshJob.Start(); err != nil {
		log.Fatalf("Failed to start token refresh job: %v", err)
	}
	defer refreshJob.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", handlers.Health)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	publish := handlers.NewPublishHandler(publishService)
	api.Post("/posts/publish", publish.PublishNow)
	api.Get("/posts/results", publish.ListResults)

	channel := handlers.NewChannelHandler(channelService, refreshJob)
	api.Get("/channels", channel.ListChannels)
	api.Post("/channels/refresh", channel.RefreshAll)

	media := handlers.NewMediaHandler(retentionService)
	api.Post("/media/sweep", media.SweepOrphans)

	queueW := queue.NewWorker(retentionService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeMediaCleanup, queueW.HandleMediaCleanupTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db, publishScheduler, refreshJob)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, scheduler *job.PublishScheduler, refresh *job.TokenRefreshJob) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()
	refresh.Stop()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
