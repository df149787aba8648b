package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/raglegal/api/internal/client"
	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/handler"
	"github.com/raglegal/api/internal/middleware"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/parser"
	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/internal/store"
	"github.com/raglegal/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Postgres
	db, err := store.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Asynq client and inspector
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Initialize validator
	validate := validator.New()

	// Stores
	userStore := store.NewUserStore(db)
	documentStore := store.NewDocumentStore(db)
	chatStore := store.NewChatStore(db)

	// External clients
	aiClient := client.NewAIClient(&cfg.AI)
	groqClient := client.NewGroqClient(&cfg.Groq)
	if !groqClient.IsConfigured() {
		log.Println("Info: Groq not configured, session titles use local fallback")
	}

	// Document parser
	docParser := parser.New(cfg.Convert.SofficePath, time.Duration(cfg.Convert.Timeout)*time.Second)

	// Services
	taskService := service.NewTaskService(asynqClient, inspector, &cfg.Tasks)
	userService := service.NewUserService(userStore, &cfg.JWT)
	documentService := service.NewDocumentService(documentStore, taskService, &cfg.Upload)
	chatService := service.NewChatService(chatStore, taskService)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, validate)
	usersHandler := handler.NewUsersHandler(userService, validate)
	documentsHandler := handler.NewDocumentsHandler(documentService, validate, cfg.Upload.MaxSizeMB)
	chatsHandler := handler.NewChatsHandler(chatService, validate)
	tasksHandler := handler.NewTasksHandler(taskService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, userStore)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    (cfg.Upload.MaxSizeMB + 1) * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
				"database": db.PingContext(c.Context()) == nil,
				"ai":       aiClient.IsConfigured(),
				"groq":     groqClient.IsConfigured(),
			},
		})
	})

	// Auth routes
	app.Post("/auth/login", authHandler.Login)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	app.Post("/auth/register", authMiddleware.Authenticate(), middleware.RequireRole(model.RoleAdmin), authHandler.Register)

	// User routes
	api.Get("/users/me", usersHandler.Me)
	users := api.Group("/users", middleware.RequireRole(model.RoleAdmin))
	users.Get("/", usersHandler.List)
	users.Patch("/:id", usersHandler.Update)
	users.Delete("/:id", usersHandler.Delete)

	// Document routes
	documents := api.Group("/documents")
	documents.Post("/upload",
		middleware.RequireRole(model.RoleUploader, model.RoleAdmin),
		rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour),
		documentsHandler.Upload)
	documents.Get("/pending", middleware.RequireRole(model.RoleReviewer), documentsHandler.Pending)
	documents.Get("/:id/preview", middleware.RequireRole(model.RoleReviewer), documentsHandler.Preview)
	documents.Put("/:id/approve", middleware.RequireRole(model.RoleReviewer), documentsHandler.Approve)
	documents.Put("/:id/reject", middleware.RequireRole(model.RoleReviewer), documentsHandler.Reject)

	// Chat routes
	chats := api.Group("/chats")
	chats.Post("/sessions", chatsHandler.CreateSession)
	chats.Get("/sessions", chatsHandler.ListSessions)
	chats.Get("/sessions/:id/messages", chatsHandler.Messages)
	chats.Delete("/sessions/:id", chatsHandler.DeleteSession)
	chats.Post("/sessions/:id/messages", rateLimiter.ChatLimit(cfg.RateLimit.ChatPerMin), chatsHandler.PostMessage)

	// Task polling
	api.Get("/tasks/:taskId", tasksHandler.Status)

	// Start Asynq worker server
	go startWorkerServer(cfg, redisOpt, documentStore, chatStore, aiClient, groqClient, docParser)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	redisOpt asynq.RedisClientOpt,
	documentStore *store.DocumentStore,
	chatStore *store.ChatStore,
	aiClient *client.AIClient,
	groqClient *client.GroqClient,
	docParser *parser.Parser,
) {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Tasks.Concurrency,
		Queues: map[string]int{
			service.QueueChat:   6,
			service.QueueIngest: 4,
		},
		RetryDelayFunc: service.LinearBackoff(time.Duration(cfg.Tasks.BaseDelay) * time.Second),
		LogLevel:       asynqLogLevel,
	})

	ingestWorker := worker.NewIngestWorker(documentStore, docParser)
	queryWorker := worker.NewQueryWorker(aiClient, chatStore, groqClient)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeIngest, ingestWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeQuery, queryWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
