package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactsbook/contacts-api/internal/cache"
	"github.com/contactsbook/contacts-api/internal/handler"
	"github.com/contactsbook/contacts-api/internal/mailer"
	"github.com/contactsbook/contacts-api/internal/middleware"
	"github.com/contactsbook/contacts-api/internal/migrate"
	"github.com/contactsbook/contacts-api/internal/repository"
	"github.com/contactsbook/contacts-api/internal/service"
	"github.com/contactsbook/contacts-api/internal/storage"
	"github.com/contactsbook/contacts-api/pkg/config"
	"github.com/contactsbook/contacts-api/pkg/database"
	"github.com/contactsbook/contacts-api/pkg/logger"
	"github.com/contactsbook/contacts-api/pkg/redis"
	"github.com/contactsbook/contacts-api/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("Starting contacts API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(context.Background())

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Apply schema migrations
	if err := migrate.Up(ctx, cfg.Database.DSN()); err != nil {
		appLog.Fatal(fmt.Sprintf("Migrations failed: %v", err))
	}
	appLog.Info("Migrations applied")

	// Initialize Redis
	rdb, err := redis.NewClient(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer rdb.Close()
	appLog.Info(fmt.Sprintf("Redis connected (%s)", cfg.Redis.Addr()))

	// Initialize avatar object storage
	avatars, err := storage.NewS3AvatarStorage(ctx, &storage.Config{
		Region:       cfg.S3.Region,
		Bucket:       cfg.S3.Bucket,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		BaseEndpoint: cfg.S3.BaseEndpoint,
		PublicURL:    cfg.S3.PublicURL,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Avatar storage init failed: %v", err))
	}

	mail := mailer.NewSMTPMailer(&mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.App.Name,
	})

	// Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db.Pool())
	contactRepo := repository.NewPostgresContactRepository(db.Pool())
	resetRepo := repository.NewPostgresResetTokenRepository(db.Pool())

	userCache := cache.NewUserCache(rdb, cfg.Cache.UserTTL)

	// Initialize services
	authService := service.NewAuthService(userRepo, resetRepo, userCache, mail, avatars, &service.AuthServiceConfig{
		JWTSecret:       cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		ResetTokenTTL:   cfg.Reset.TokenTTL,
		BcryptCost:      12,
		VerifyURL:       cfg.App.BaseURL + "/api/v1/auth/verify",
		ResetURL:        cfg.App.BaseURL + "/reset-password",
	})
	contactService := service.NewContactService(contactRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	contactHandler := handler.NewContactHandler(contactService)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/request-verification", authHandler.RequestVerification)
			auth.GET("/verify", authHandler.VerifyEmail)
			auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}

		protected := v1.Group("")
		protected.Use(middleware.Authenticate(authService))
		{
			users := protected.Group("/users")
			{
				me := users.Group("/me")
				if cfg.RateLimit.Enabled {
					me.GET("", middleware.RateLimit(rdb, middleware.RateLimitConfig{
						Requests: cfg.RateLimit.Requests,
						Window:   cfg.RateLimit.Window,
					}, appLog), authHandler.Me)
				} else {
					me.GET("", authHandler.Me)
				}
				me.PATCH("/avatar", authHandler.UploadAvatar)
			}

			contacts := protected.Group("/contacts")
			{
				contacts.POST("", contactHandler.Create)
				contacts.GET("", contactHandler.List)
				contacts.GET("/birthdays", contactHandler.UpcomingBirthdays)
				contacts.GET("/:id", contactHandler.Get)
				contacts.PUT("/:id", contactHandler.Update)
				contacts.DELETE("/:id", contactHandler.Delete)
			}
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Contacts API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	stop()
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
