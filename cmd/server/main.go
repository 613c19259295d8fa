package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/config"
	bookingEvents "github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/handler"
	"github.com/mindsettler/service-booking/internal/metrics"
	"github.com/mindsettler/service-booking/internal/notification"
	"github.com/mindsettler/service-booking/internal/platform/auth"
	"github.com/mindsettler/service-booking/internal/platform/database"
	"github.com/mindsettler/service-booking/internal/platform/health"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
	"github.com/mindsettler/service-booking/internal/platform/logger"
	"github.com/mindsettler/service-booking/internal/platform/middleware"
	"github.com/mindsettler/service-booking/internal/repository"
	"github.com/mindsettler/service-booking/internal/throttle"
	"github.com/mindsettler/service-booking/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
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
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.UserModel{},
			&repository.BookingModel{},
			&repository.NotificationRecordModel{},
			&repository.ProviderModel{},
			&repository.CorporateModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), migrations.FS, ".", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.Issuer,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = rdb.Close() }()
	limiter := throttle.NewRedisLimiter(rdb, "booking:throttle", log)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	notificationRepo := repository.NewGormNotificationRecordRepository(db)
	providerRepo := repository.NewGormProviderRepository(db)
	corporateRepo := repository.NewGormCorporateRepository(db)

	// Initialize notification dispatcher
	renderer, err := notification.NewRenderer()
	if err != nil {
		log.Fatal("failed to parse email templates", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(
		renderer,
		notification.NewSender(cfg.SMTPConfig, log),
		notificationRepo,
		log,
	)

	// Initialize application services
	directoryService := application.NewDirectoryService(providerRepo, corporateRepo, nil, log)
	bookingService := application.NewBookingService(application.ServiceDependencies{
		Bookings:          bookingRepo,
		Users:             userRepo,
		Directory:         directoryService,
		Notifier:          dispatcher,
		Producer:          kafkaProducer,
		Limiter:           limiter,
		FrontendURL:       cfg.FrontendURL,
		ResendWindow:      cfg.VerificationResendWindow,
		StatusEmailWindow: cfg.StatusEmailWindow,
		Logger:            log,
	})
	notificationService := application.NewNotificationService(notificationRepo, log)

	// Initialize and start payment event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	adminBookingHandler := handler.NewAdminBookingHandler(bookingService, notificationService)
	directoryHandler := handler.NewDirectoryHandler(directoryService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(metrics.GinMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-booking")
	healthHandler.AddCheck("redis", func(ctx context.Context) error {
		return limiter.Ping(ctx)
	})
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Register routes
	publicWriteLimit := throttle.RateLimitMiddleware(rdb, 20, time.Minute, "booking:ratelimit", log)
	bookingHandler.RegisterRoutes(&router.RouterGroup, publicWriteLimit)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	directoryHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
