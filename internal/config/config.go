package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Development bool `env:"DEVELOPMENT" envDefault:"false"`
	// API configuration
	APIPort int `env:"API_PORT" envDefault:"6532"`
	// PublicBaseURL is used to build verification, invite and cancel links in messages.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:6532"`
	// Postgres configuration
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"password"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"successio"`

	// SMTP configuration
	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.example.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPSender   string `env:"SMTP_SENDER"`

	// Operations channel. Telegram is disabled when the token is empty.
	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramOpsChatID string `env:"TELEGRAM_OPS_CHAT_ID"`

	// Sweep configuration
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepDeadline time.Duration `env:"SWEEP_DEADLINE" envDefault:"10m"`
	SweepWorkers  int           `env:"SWEEP_WORKERS" envDefault:"8"`
	SweepLockTTL  time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"30m"`
	InstanceID    string        `env:"INSTANCE_ID" envDefault:"successio-0"`
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
	}

	if c.TelegramBotToken != "" && c.TelegramOpsChatID == "" {
		return fmt.Errorf("TELEGRAM_OPS_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}

	if c.SweepDeadline <= 0 || c.SweepDeadline > c.SweepInterval {
		return fmt.Errorf("SWEEP_DEADLINE must be positive and not longer than SWEEP_INTERVAL")
	}

	if c.SweepWorkers < 1 {
		return fmt.Errorf("SWEEP_WORKERS must be at least 1")
	}

	if c.SweepLockTTL < c.SweepDeadline {
		return fmt.Errorf("SWEEP_LOCK_TTL must not be shorter than SWEEP_DEADLINE")
	}

	return nil
}

// PostgresDSN builds the connection string for gorm's postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
}
