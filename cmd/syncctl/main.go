package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/brandlens/mentions-sync/internal/monitoring"
	"github.com/brandlens/mentions-sync/internal/provider"
	"github.com/brandlens/mentions-sync/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "Operate the mention provider sync",
	Long:  "Lists provider alerts and runs single-binding or batch syncs against the configured store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.InfoLevel)
		if cfg.Debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

// newSyncService builds a service without archive or notifications. The returned
// closer releases the database connection, if any.
func newSyncService(ctx context.Context) (*monitoring.Service, func(), error) {
	var dataStore store.Store
	closer := func() {}

	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(ctx, cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			return nil, nil, err
		}
		dataStore = gormStore
		closer = func() { _ = gormStore.Close() }
	} else {
		logrus.Warn("DATABASE_URL not set, results are kept in memory only")
		dataStore = store.NewMemoryStore()
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

	return monitoring.NewService(cfg, client, dataStore, nil, nil), closer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
