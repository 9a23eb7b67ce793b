// Package main provides the API server entry point for the earnings tracker backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/earnings-tracker/internal/api"
	"github.com/earnings-tracker/internal/config"
	"github.com/earnings-tracker/internal/logging"
	"github.com/earnings-tracker/internal/security"
	"github.com/earnings-tracker/internal/service"
	"github.com/earnings-tracker/internal/shortcut"
	"github.com/earnings-tracker/internal/storage"
	"github.com/earnings-tracker/internal/worker"
)

func main() {
	fmt.Println("Earnings Tracker API Server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":    cfg.Logging.Level,
		"format":   cfg.Logging.Format,
		"timezone": cfg.App.Timezone,
	}).Info("Structured logging initialized")

	tokens, err := security.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.WithError(err).Fatal("JWT_SECRET must be set")
	}

	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Redis only backs the shortcut download registry, so the server runs without it
	var (
		registry *storage.DownloadRegistry
		janitor  *worker.DownloadJanitor
	)
	redisStore, err := storage.NewRedisStore(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, published shortcuts will not expire")
	} else {
		defer redisStore.Close()
		registry = storage.NewDownloadRegistry(redisStore)
	}

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	jobRepo := storage.NewJobRepository(postgres)
	shiftRepo := storage.NewShiftRepository(postgres)

	// Initialize services
	loc := cfg.App.Location()
	authService := service.NewAuthService(userRepo, tokens)
	jobService := service.NewJobService(jobRepo)
	activityService := service.NewActivityService(jobService, shiftRepo, time.Now, loc)
	periodicService := service.NewPeriodicService(jobService, shiftRepo, time.Now, loc)

	generatorConfig := shortcut.GeneratorConfig{
		Templates:    shortcut.NewTemplateStore(cfg.Shortcuts.TemplateDir),
		TempDir:      cfg.Shortcuts.TempDir,
		CleanupDelay: cfg.Shortcuts.CleanupDelay,
		DownloadTTL:  cfg.Shortcuts.DownloadTTL,
	}
	if registry != nil {
		generatorConfig.Registry = registry
	}
	generator, err := shortcut.NewGenerator(generatorConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create shortcut generator")
	}

	if registry != nil {
		janitor, err = worker.NewDownloadJanitor(&worker.DownloadJanitorConfig{
			Registry: registry,
			Dir:      cfg.Shortcuts.TempDir,
			Interval: cfg.Shortcuts.SweepInterval,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to create download janitor")
		}
		if err := janitor.Start(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to start download janitor")
		}
	}

	logger.Info("Services initialized")

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		PublicBaseURL:     cfg.Server.PublicBaseURL,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		AllowUserHeader:   cfg.Auth.AllowUserHeader,

		TrustProxy:           cfg.RateLimit.TrustProxy,
		LimiterIdleTTL:       cfg.RateLimit.IdleTTL,
		LimiterSweepInterval: cfg.RateLimit.SweepInterval,
	}

	if cfg.Auth.AllowUserHeader {
		logger.Warn("AUTH_ALLOW_USER_HEADER is enabled, X-User-Id is trusted without a token")
	}

	server := api.NewServer(serverConfig, api.Services{
		Auth:       authService,
		Jobs:       jobService,
		Activities: activityService,
		Periodic:   periodicService,
		Shortcuts:  generator,
		Tokens:     tokens,
		Database:   postgres,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if janitor != nil {
		if err := janitor.Stop(ctx); err != nil {
			logger.WithError(err).Warn("Failed to stop download janitor")
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
