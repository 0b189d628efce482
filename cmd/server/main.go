package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forkline-eats/service-promo/internal/adapter"
	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/config"
	promoEvents "github.com/forkline-eats/service-promo/internal/events"
	"github.com/forkline-eats/service-promo/internal/handler"
	"github.com/forkline-eats/service-promo/internal/platform/auth"
	"github.com/forkline-eats/service-promo/internal/platform/database"
	"github.com/forkline-eats/service-promo/internal/platform/health"
	"github.com/forkline-eats/service-promo/internal/platform/kafka"
	"github.com/forkline-eats/service-promo/internal/platform/logger"
	"github.com/forkline-eats/service-promo/internal/platform/middleware"
	"github.com/forkline-eats/service-promo/internal/repository"
	"github.com/forkline-eats/service-promo/internal/saga"
)

const serviceName = "service-promo"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, cfg.LogLevel, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := repository.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize payment gateway
	paymentGateway, err := adapter.NewPaymentGateway(cfg.PaymentConfig.Provider, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize payment gateway", zap.Error(err))
	}

	// Initialize repositories
	promoRepo := repository.NewGormPromoCodeRepository(db)
	usageLedger := repository.NewGormUsageLedger(db)
	restaurantRepo := repository.NewGormRestaurantRepository(db)
	transactor := repository.NewGormTransactor(db)

	// Initialize application services
	engine := application.NewDiscountEngine(promoRepo, usageLedger, transactor, zapLogger)
	promoService := application.NewPromoService(engine, promoRepo, usageLedger, restaurantRepo, zapLogger)
	deliveryService := application.NewDeliveryService(restaurantRepo, zapLogger)

	// Initialize saga service
	checkoutSaga := saga.NewCheckoutSagaService(paymentGateway, engine, kafkaProducer, zapLogger)
	checkoutService := application.NewCheckoutService(engine, deliveryService, checkoutSaga, cfg.PaymentConfig.Currency, zapLogger)

	// Initialize Kafka consumer for order events
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "promo-service"
	orderConsumer := promoEvents.NewOrderEventConsumer(
		cfg.KafkaConfig.Brokers,
		consumerGroupID,
		engine,
		zapLogger,
	)
	defer orderConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting order event consumer")
		if err := orderConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("order event consumer failed", zap.Error(err))
			}
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewPromoHandler(promoService).RegisterRoutes(apiV1, jwtManager)
	handler.NewDeliveryHandler(deliveryService).RegisterRoutes(apiV1)
	handler.NewCheckoutHandler(checkoutService).RegisterRoutes(apiV1, jwtManager)
	handler.NewAdminPromoHandler(promoService).RegisterRoutes(apiV1, jwtManager)

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

	zapLogger.Info("shutting down " + serviceName + "...")

	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}
