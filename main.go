package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"inventory/internal/database"
	"inventory/internal/handlers"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/services"
	"inventory/pkg/config"
	applog "inventory/pkg/logger"
	"inventory/pkg/rabbitmq"
)

// App bundles the HTTP application with the resources it owns.
type App struct {
	Fiber          *fiber.App
	ProductService *services.ProductService

	cfg *config.Config
	db  *gorm.DB
	mq  *rabbitmq.Client
}

// NewApp builds the store, services, handlers and routes described by cfg.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// --- Product store ---
	var productRepo repositories.ProductRepository
	if cfg.DB.Driver == config.DriverMemory {
		productRepo = repositories.NewMemoryProductRepository()
	} else {
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		a.db = db
		productRepo = repositories.NewGORMProductRepository(db)
	}

	// --- Event publisher (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQ.Enabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		a.mq = mqClient
		publisher = mqClient
	}

	a.ProductService = services.NewProductService(productRepo, publisher)
	productHandler := handlers.NewProductHandler(a.ProductService)

	app := fiber.New(fiber.Config{
		AppName:      "inventory",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	api := app.Group("/api")
	productHandler.RegisterRoutes(api)

	app.Get("/health", a.handleHealth)

	a.Fiber = app
	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	broker := "disabled"
	if a.mq != nil {
		broker = "connected"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"storage":  a.cfg.DB.Driver,
		"rabbitmq": broker,
	})
}

// StartStockConsumer applies stock commands from the broker, if one is configured.
func (a *App) StartStockConsumer() error {
	if a.mq == nil {
		return nil
	}
	handler := handlers.NewStockMessageHandler(a.ProductService)
	return a.mq.ConsumeStockCommands(handler.Handle)
}

// Close releases the broker connection and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if a.db != nil {
		errs = append(errs, database.Close(a.db))
	}
	return errors.Join(errs...)
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applog.New(applog.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	a, err := NewApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer a.Close()

	if cfg.App.SeedData {
		seedProducts(context.Background(), a.ProductService)
	}

	if err := a.StartStockConsumer(); err != nil {
		log.Error().Err(err).Msg("failed to start stock command consumer")
	}

	// --- Start HTTP Server ---
	log.Info().Str("addr", cfg.App.Port).Str("storage", cfg.DB.Driver).Msg("starting server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.Fiber.Listen(cfg.App.Port); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server...")

	if err := a.Fiber.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during Fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

// seedProducts populates an empty catalogue with a few sample products.
func seedProducts(ctx context.Context, service *services.ProductService) {
	products := []models.Product{
		{Name: "Laptop", Code: "LAP-001", Quantity: 12, Price: 1200.00, LowStockThreshold: 5},
		{Name: "Mechanical Keyboard", Code: "KEY-001", Quantity: 8, Price: 75.00, LowStockThreshold: models.DefaultLowStockThreshold},
		{Name: "Wireless Mouse", Code: "MOU-001", Quantity: 50, Price: 25.00, LowStockThreshold: models.DefaultLowStockThreshold},
	}

	for i := range products {
		err := service.CreateProduct(ctx, &products[i])
		switch {
		case errors.Is(err, models.ErrDuplicateCode):
			log.Debug().Str("code", products[i].Code).Msg("seed product already present")
		case err != nil:
			log.Error().Err(err).Str("code", products[i].Code).Msg("error seeding product")
		default:
			log.Info().Str("code", products[i].Code).Str("id", products[i].ID).Msg("seeded product")
		}
	}
}
