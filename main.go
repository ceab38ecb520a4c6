package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bookstore/internal/config"
	"bookstore/internal/googlebooks"
	"bookstore/internal/models"
	"bookstore/internal/payments"
	"bookstore/internal/repositories"
	"bookstore/internal/services"
	"bookstore/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Database ---
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Book{}); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	// --- Initialize RabbitMQ Client ---
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.IngestQueue})
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
	}
	defer mqClient.Close() // Ensure the connection is closed on exit

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	bookRepo := repositories.NewGORMBookRepository(db)

	checks := map[string]HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var jobRepo repositories.JobRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		jobRepo = repositories.NewRedisJobRepository(rdb, cfg.JobStatusTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Println("REDIS_ADDR not set, keeping ingestion job status in memory")
		jobRepo = repositories.NewMemoryJobRepository()
	}

	// --- Initialize Services ---
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	authService := services.NewAuthService(userRepo, tokens)
	bookService := services.NewBookService(bookRepo)

	var gateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = payments.NewStripeGateway(cfg.StripeSecretKey, nil)
	} else {
		log.Println("STRIPE_SECRET_KEY not set, card payments are disabled")
	}
	paymentService := services.NewPaymentService(bookRepo, gateway, cfg.PaymentCurrency)

	googleClient := googlebooks.NewClient(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey, cfg.GoogleBooksTimeout, cfg.GoogleBooksRPS)
	dispatcher := services.NewQueueDispatcher(mqClient, jobRepo)
	catalogService := services.NewCatalogService(googleClient, dispatcher, jobRepo)
	worker := services.NewIngestionWorker(bookRepo, jobRepo, cfg.IngestDedupByGID)

	// --- Start RabbitMQ Consumers ---
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := mqClient.Consume(ctx, cfg.IngestWorkers, ingestionHandler(worker)); err != nil {
		log.Fatalf("Failed to start ingestion workers: %v", err)
	}

	// --- Initialize Fiber App ---
	app := newApp(appDeps{
		Auth:     authService,
		Books:    bookService,
		Payments: paymentService,
		Catalog:  catalogService,
		Checks:   checks,
	})

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

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	// Let in-flight ingestion jobs finish before the connection goes away
	stop()
	mqClient.Wait()

	log.Println("Server gracefully stopped")
}

// ingestionHandler adapts the worker to queue deliveries. Undecodable bodies are dropped;
// claim failures are requeued since nothing was written yet.
func ingestionHandler(worker *services.IngestionWorker) rabbitmq.Handler {
	return func(ctx context.Context, msg amqp.Delivery) error {
		job, err := services.DecodeIngestionMessage(msg.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", rabbitmq.ErrReject, err)
		}
		_, err = worker.Execute(ctx, job)
		return err
	}
}
