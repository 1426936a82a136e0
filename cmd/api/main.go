package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopops/backoffice/internal/api/handlers"
	"github.com/shopops/backoffice/internal/application"
	"github.com/shopops/backoffice/internal/config"
	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/infrastructure/cafe24"
	"github.com/shopops/backoffice/internal/infrastructure/events"
	mongoRepo "github.com/shopops/backoffice/internal/infrastructure/mongodb"
	redisProgress "github.com/shopops/backoffice/internal/infrastructure/redis"
	"github.com/shopops/backoffice/internal/ingestion"
	"github.com/shopops/backoffice/internal/matching"
	"github.com/shopops/backoffice/internal/pricequeue"
	"github.com/shopops/backoffice/pkg/kafka"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
	"github.com/shopops/backoffice/pkg/middleware"
	"github.com/shopops/backoffice/pkg/mongodb"
	"github.com/shopops/backoffice/pkg/resilience"
	"github.com/shopops/backoffice/pkg/tracing"
)

const serviceName = "backoffice-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggerSettings())
	logger.SetDefault()
	logger.Info("Starting backoffice API", "mall_id", cfg.Cafe24.MallID)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := cfg.TracingSettings()
	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB holds the OAuth tokens
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoSettings())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	tokenRepo := mongoRepo.NewTokenRepository(mongoClient.Database(), logger, m)

	// Cafe24 adapter
	cafe24Config := cfg.Cafe24Settings()
	oauth := cafe24.NewOAuth(cafe24Config, logger, m)
	tokens := cafe24.NewStoredTokenProvider(cafe24Config.MallID, tokenRepo, oauth, logger)
	breaker := resilience.NewCircuitBreaker(cafe24.BreakerConfig(m), logger.Logger)
	client := cafe24.NewClient(cafe24Config, tokens, breaker, logger, m)

	// Domain events
	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaConfig := cfg.KafkaSettings()
		kafkaConfig.ClientID = serviceName
		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer, cfg.Cafe24.MallID, logger, m)
		logger.Info("Kafka producer initialized", "brokers", kafkaConfig.Brokers)
	}

	// Price update queue, with progress fan-out over redis when configured
	queue := pricequeue.New(client, cfg.PriceQueueSettings(), logger, m)
	if cfg.Redis.Addr != "" {
		redisClient, err := redisProgress.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, progress is served by polling only")
		} else {
			defer redisClient.Close()
			queue.Subscribe(redisProgress.NewProgressPublisher(redisClient, cfg.Redis.ProgressChannel, cfg.Cafe24.MallID, logger))
			logger.Info("Progress publishing enabled", "channel", cfg.Redis.ProgressChannel)
		}
	}

	shipmentService := application.NewShipmentService(
		ingestion.NewParser(logger),
		client,
		matching.NewMatcher(logger, m),
		dispatch.NewDispatcher(client, cfg.DispatchSettings(), logger, m),
		publisher,
		application.ShipmentServiceConfig{
			OrderStatuses: cfg.OrderStatuses(),
			CarrierCode:   cfg.Cafe24.DefaultCarrierCode,
		},
		logger,
	)
	priceService := application.NewPriceService(queue, publisher, logger)

	// Setup Gin router with middleware
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middlewareConfig.ErrorMapper = handlers.MapError
	middlewareConfig.MallID = cfg.Cafe24.MallID
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return mongoClient.HealthCheck(checkCtx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	handlers.NewShipmentHandlers(shipmentService, logger).RegisterRoutes(api)
	handlers.NewPriceHandlers(priceService, logger).RegisterRoutes(api)
	handlers.NewOAuthHandlers(oauth, tokens, logger).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// A running price update stops after the item in flight; the remaining
	// items are lost with the process.
	queue.Stop()
	select {
	case <-queue.Done():
	case <-shutdownCtx.Done():
		logger.Warn("Price queue did not stop before shutdown deadline", "pending", queue.Progress().Pending)
	}

	logger.Info("Server stopped")
}
