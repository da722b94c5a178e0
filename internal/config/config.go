package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Relational store; empty means the in-memory store is used
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Mention provider
	ProviderBaseURL        string        `envconfig:"PROVIDER_BASE_URL" default:"https://api.mention.net/api"`
	ProviderAccessToken    string        `envconfig:"PROVIDER_ACCESS_TOKEN"`
	ProviderAccountID      string        `envconfig:"PROVIDER_ACCOUNT_ID"`
	ProviderMinInterval    time.Duration `envconfig:"PROVIDER_MIN_INTERVAL" default:"250ms"`
	ProviderMaxAttempts    int           `envconfig:"PROVIDER_MAX_ATTEMPTS" default:"4"`
	ProviderBackoffBase    time.Duration `envconfig:"PROVIDER_BACKOFF_BASE" default:"500ms"`
	ProviderBackoffJitter  time.Duration `envconfig:"PROVIDER_BACKOFF_JITTER" default:"250ms"`
	ProviderRequestTimeout time.Duration `envconfig:"PROVIDER_REQUEST_TIMEOUT" default:"20s"`

	// Sync configuration
	SyncSchedule    string        `envconfig:"SYNC_SCHEDULE" default:"0 */30 * * * *"`
	SyncLookback    time.Duration `envconfig:"SYNC_LOOKBACK" default:"720h"`
	SyncMaxPages    int           `envconfig:"SYNC_MAX_PAGES" default:"10"`
	SyncPageSize    int           `envconfig:"SYNC_PAGE_SIZE" default:"100"`
	ReviewThreshold float64       `envconfig:"REVIEW_THRESHOLD" default:"0.6"`
	SyncHardFail    bool          `envconfig:"SYNC_HARD_FAIL" default:"false"`

	// Azure Storage configuration (run report archive)
	StorageAccount   string        `envconfig:"AZURE_STORAGE_ACCOUNT"`
	StorageContainer string        `envconfig:"AZURE_STORAGE_CONTAINER" default:"sync-runs"`
	ReportRetention  time.Duration `envconfig:"REPORT_RETENTION" default:"2160h"`

	// Notification configuration
	TeamsWebhookURL    string `envconfig:"TEAMS_WEBHOOK_URL"`
	NotificationEmail  string `envconfig:"NOTIFICATION_EMAIL"`
	SMTPHost           string `envconfig:"SMTP_HOST"`
	SMTPPort           int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername       string `envconfig:"SMTP_USERNAME"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	NotifyOnErrorsOnly bool   `envconfig:"NOTIFY_ON_ERRORS_ONLY" default:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ProviderAccessToken) == "" {
		return fmt.Errorf("PROVIDER_ACCESS_TOKEN is required")
	}

	if strings.TrimSpace(c.ProviderBaseURL) == "" {
		return fmt.Errorf("PROVIDER_BASE_URL is required")
	}

	if c.ProviderMaxAttempts < 1 {
		return fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be >= 1")
	}

	if c.ProviderMinInterval < 0 || c.ProviderBackoffBase < 0 || c.ProviderBackoffJitter < 0 {
		return fmt.Errorf("provider intervals must not be negative")
	}

	if c.SyncMaxPages < 1 {
		return fmt.Errorf("SYNC_MAX_PAGES must be >= 1")
	}

	if c.SyncPageSize < 1 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be >= 1")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// NotificationsEnabled reports whether at least one notification channel is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}
