package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docta-care/service-payment/internal/application"
	"github.com/docta-care/service-payment/internal/config"
	"github.com/docta-care/service-payment/internal/events"
	"github.com/docta-care/service-payment/internal/gateway"
	"github.com/docta-care/service-payment/internal/handler"
	"github.com/docta-care/service-payment/internal/health"
	"github.com/docta-care/service-payment/internal/logger"
	"github.com/docta-care/service-payment/internal/middleware"
	"github.com/docta-care/service-payment/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-payment")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-payment",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBConfig.DSN()), &gorm.Config{})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.SessionModel{}, &repository.PeriodModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize Kafka lifecycle-event producer
	producer := events.NewProducer(cfg.KafkaBrokers, zapLogger)
	defer producer.Close()

	// Initialize Tranzak gateway client with its shared token cache
	tokenCache := gateway.NewTokenCache(
		cfg.TranzakConfig.APIURL,
		cfg.TranzakConfig.AppID,
		cfg.TranzakConfig.AppKey,
		zapLogger,
	)
	gatewayClient := gateway.NewClient(cfg.TranzakConfig.APIURL, tokenCache, zapLogger)

	// Initialize repositories and the atomic reconciliation store
	sessionRepo := repository.NewSessionRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	reconciliationStore := repository.NewReconciliationStore(db)

	// Initialize application services
	reconciliationService := application.NewReconciliationService(
		sessionRepo, periodRepo, reconciliationStore, producer, zapLogger)
	refundService := application.NewRefundService(
		sessionRepo, gatewayClient, producer, zapLogger)
	paymentService := application.NewPaymentService(
		sessionRepo, periodRepo, gatewayClient,
		cfg.FrontendURL, cfg.CurrencyCode,
		time.Duration(cfg.BookingLeadTimeMins)*time.Minute,
		zapLogger,
	)

	// Initialize RabbitMQ consumer for domain events
	consumer := events.NewConsumer(
		cfg.QueueConfig.URL,
		cfg.QueueConfig.Exchange,
		cfg.QueueConfig.Queue,
		zapLogger,
	)
	consumer.Register(events.RoutingKeyInitiateRefund, refundService.HandleInitiateRefund)
	defer consumer.Close()

	// Start consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting domain-event consumer")
		if err := consumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("domain-event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(reconciliationService, zapLogger)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.RequestIDMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-payment")
	healthHandler.RegisterRoutes(router)

	// Register routes
	webhookHandler.RegisterRoutes(router)
	apiV1 := router.Group("/api/payment/v1")
	paymentHandler.RegisterRoutes(apiV1, cfg.JWTSecret)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-payment...")

	// Stop accepting new queue deliveries
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-payment stopped")
}
