package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/subflo/subflo/config"
	"github.com/subflo/subflo/internal/api/rest"
	"github.com/subflo/subflo/internal/kafka"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/internal/repository/postgres"
	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.ParseLevel(cfg.Logging.Level))
	log.Info("Subscription tracker starting up...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database
	dbPool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := postgres.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal("Failed to apply database schema: %v", err)
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(dbPool, log)
	subscriptionRepo := postgres.NewSubscriptionRepository(dbPool, log)
	emailRepo := postgres.NewEmailRepository(dbPool, log)
	baseReportRepo := postgres.NewReportRepository(dbPool, log)

	// Report cache is optional: without Redis every aggregate hits the
	// database directly.
	var reportRepo repository.ReportRepository = baseReportRepo
	if cfg.Redis.Addr != "" {
		redisCache, err := repository.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("Failed to initialize Redis cache, continuing without caching: %v", err)
		} else {
			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Error("Error closing Redis connection: %v", err)
				}
			}()
			reportRepo = repository.NewCachedReportRepository(baseReportRepo, redisCache, log)
			log.Info("Using cached report repository")
		}
	}

	// Kafka is optional too: without brokers the service runs HTTP-only and
	// publishes nothing.
	producer := kafka.NopProducer()
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureKafkaTopics(cfg.Kafka.Brokers, log); err != nil {
			log.Warn("Failed to ensure Kafka topics: %v", err)
		}

		kafkaProducer, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Error("Failed to initialize Kafka producer, continuing without event publishing: %v", err)
		} else {
			producer = kafkaProducer
			defer func() {
				if err := kafkaProducer.Close(); err != nil {
					log.Error("Error closing Kafka producer: %v", err)
				}
			}()
		}
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	trackerMetrics := metrics.NewTrackerMetrics(promRegistry, log)

	// Services
	accountService := service.NewAccountService(accountRepo, log)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, accountRepo, reportRepo, producer, trackerMetrics, log)
	emailService := service.NewEmailService(emailRepo, accountRepo, subscriptionService, trackerMetrics, log)
	reportService := service.NewReportService(reportRepo, cfg.Charts.DemoData, log)

	// Email ingestion off Kafka
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, emailService, log)
		if err != nil {
			log.Error("Failed to initialize Kafka consumer, continuing without email ingestion: %v", err)
		} else {
			go consumer.Run(ctx)
		}
	}

	// HTTP
	router := rest.SetupRouter(rest.Services{
		Accounts:      accountService,
		Subscriptions: subscriptionService,
		Emails:        emailService,
		Reports:       reportService,
		Metrics:       trackerMetrics,
	}, promRegistry, log)

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
