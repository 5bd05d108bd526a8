package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/gorm"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/config"
	"gtdsync/internal/handlers"
	"gtdsync/internal/middleware"
	"gtdsync/internal/repositories"
	"gtdsync/internal/services"
	"gtdsync/pkg/rabbitmq"
)

// NewApp wires repositories, services and handlers onto a Fiber app.
func NewApp(cfg config.Config, db *gorm.DB, hub *broadcast.Hub) (*fiber.App, *services.AuthService) {
	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	taskRepo := repositories.NewGORMTaskRepository(db)
	projectRepo := repositories.NewGORMProjectRepository(db)
	designControlRepo := repositories.NewGORMDesignControlRepository(db)

	// --- Initialize Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	taskService := services.NewTaskService(taskRepo, userRepo, hub)
	projectService := services.NewProjectService(projectRepo, hub)
	designControlService := services.NewDesignControlService(designControlRepo, projectService, hub)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	// --- Routes ---
	auth := middleware.AuthRequired(authService)
	handlers.NewAuthHandler(authService).RegisterRoutes(app, auth)
	handlers.NewTaskHandler(taskService).RegisterRoutes(app, auth)
	handlers.NewProjectHandler(projectService).RegisterRoutes(app, auth)
	handlers.NewDesignControlHandler(designControlService).RegisterRoutes(app, auth)
	handlers.NewWSHandler(hub).RegisterRoutes(app, auth)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"sessions": hub.Sessions(),
		})
	})

	return app, authService
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Initialize Database ---
	db, err := repositories.OpenDatabase(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	hub := broadcast.NewHub(broadcast.HubConfig{
		SendBuffer: cfg.WSSendBuffer,
		Filter:     cfg.BroadcastFilter,
	})

	// --- Initialize RabbitMQ relay (optional) ---
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close() // Ensure the connection is closed on exit

		hub.SetRelay(mqClient)
		err = mqClient.ConsumeChanges(func(msg amqp.Delivery) error {
			return hub.HandleRelayed(msg.Body)
		})
		if err != nil {
			log.Fatalf("Failed to start RabbitMQ consumer: %v", err)
		}
	} else {
		log.Println("RABBITMQ_URL not set; broadcasting to local sessions only")
	}

	app, _ := NewApp(cfg, db, hub)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
