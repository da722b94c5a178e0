package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/brandlens/mentions-sync/internal/httpapi"
	"github.com/brandlens/mentions-sync/internal/monitoring"
	"github.com/brandlens/mentions-sync/internal/notifications"
	"github.com/brandlens/mentions-sync/internal/provider"
	"github.com/brandlens/mentions-sync/internal/scheduler"
	"github.com/brandlens/mentions-sync/internal/storage"
	"github.com/brandlens/mentions-sync/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting mentions sync service")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var dataStore store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(ctx, cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			logrus.Fatalf("Failed to initialize database: %v", err)
		}
		defer gormStore.Close()
		dataStore = gormStore
	} else {
		logrus.Warn("DATABASE_URL not set, using in-memory store")
		dataStore = store.NewMemoryStore()
	}

	var archive storage.StorageInterface
	if cfg.StorageAccount != "" {
		archive, err = storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
	} else {
		archive = storage.NewMemoryStorage()
	}

	var notificationService notifications.NotificationInterface
	if cfg.NotificationsEnabled() {
		notificationService = notifications.NewService(cfg)
	}

	client := provider.NewClient(provider.Options{
		BaseURL:        cfg.ProviderBaseURL,
		AccessToken:    cfg.ProviderAccessToken,
		AccountID:      cfg.ProviderAccountID,
		MinInterval:    cfg.ProviderMinInterval,
		MaxAttempts:    cfg.ProviderMaxAttempts,
		BackoffBase:    cfg.ProviderBackoffBase,
		BackoffJitter:  cfg.ProviderBackoffJitter,
		RequestTimeout: cfg.ProviderRequestTimeout,
	})

	syncService := monitoring.NewService(cfg, client, dataStore, archive, notificationService)

	schedulerService := scheduler.NewService(cfg, syncService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpapi.NewServer(ctx, syncService).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
