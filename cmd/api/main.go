package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"talentvoice/interview-analyzer/internal/config"
	"talentvoice/interview-analyzer/internal/handlers"
	"talentvoice/interview-analyzer/internal/repositories"
	"talentvoice/interview-analyzer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	recordingRepo := repositories.NewRecordingRepository(db)
	sessionRepo := repositories.NewLiveSessionRepository(db)
	log.Println("✅ Repositories initialized successfully")

	ctx := context.Background()

	// Initialize object store
	objectStore, err := services.NewS3ObjectStore(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("❌ Failed to initialize object store: %v", err)
	}
	log.Println("✅ Object store initialized successfully")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize pipeline services
	transcoder := services.NewTranscoder(cfg.Pipeline.FFmpegPath, cfg.Pipeline.TempDir)
	transcriptionService := services.NewTranscriptionService(cfg.Transcription)
	scoringService := services.NewScoringService(geminiService, cfg.Worker.RetryMaxAttempts)
	driveService := services.NewDriveService(cfg.Pipeline.DriveBaseURL)

	dispatcher := services.NewDispatcher(cfg.Worker.Concurrency)
	dispatcher.Start(ctx)
	log.Println("✅ Dispatcher started successfully")

	pipelineService := services.NewPipelineService(
		recordingRepo,
		transcoder,
		objectStore,
		transcriptionService,
		scoringService,
		driveService,
		dispatcher,
	)
	log.Println("✅ Pipeline service initialized")

	liveSessionService := services.NewLiveSessionService(
		sessionRepo,
		recordingRepo,
		geminiService,
		scoringService,
		cfg.Pipeline.DefaultDurationMinutes,
		cfg.Worker.RetryMaxAttempts,
	)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(pipelineService, cfg.Pipeline.MaxFileSize)
	recordingHandler := handlers.NewRecordingHandler(recordingRepo)
	liveSessionHandler := handlers.NewLiveSessionHandler(liveSessionService)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Interview Analyzer API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    int(cfg.Pipeline.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/upload/external-source", uploadHandler.HandleExternalSource)
	api.Get("/recordings", recordingHandler.HandleList)
	api.Get("/recordings/:id", recordingHandler.HandleGet)
	api.Post("/live-session/start", liveSessionHandler.HandleStart)
	api.Post("/live-session/turn", liveSessionHandler.HandleTurn)
	api.Post("/live-session/end", liveSessionHandler.HandleEnd)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Interview Analyzer API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/upload/external-source",
				"GET /api/v1/recordings",
				"GET /api/v1/recordings/:id",
				"POST /api/v1/live-session/start",
				"POST /api/v1/live-session/turn",
				"POST /api/v1/live-session/end",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		dispatcher.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
