package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	ERPNextURL      string        `envconfig:"ERPNEXT_URL" required:"true"`
	ERPAPIKey       string        `envconfig:"ERP_API_KEY" required:"true"`
	ERPAPISecret    string        `envconfig:"ERP_API_SECRET" required:"true"`
	UpstreamTimeout time.Duration `envconfig:"ERP_TIMEOUT" default:"20s"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	LockTTL   time.Duration `envconfig:"LOCK_TTL" default:"30s"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@periodgate.local"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	// Comma separated list of finance addresses that receive period
	// lifecycle mail in addition to the acting user.
	NotifyRecipients []string `envconfig:"NOTIFY_RECIPIENTS"`

	// Cron expression for the open-period reminder scan, asynq format.
	ReminderCron string `envconfig:"REMINDER_CRON" default:"0 7 * * *"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:""`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.ERPNextURL == "" {
		return nil, errors.New("upstream ERPNext URL must be provided")
	}
	if cfg.ERPAPIKey == "" || cfg.ERPAPISecret == "" {
		return nil, errors.New("upstream API credentials must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
