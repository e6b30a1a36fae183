package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
	JWT          JWTConfig          `yaml:"jwt"`
	Payment      PaymentConfig      `yaml:"payment"`
	Notification NotificationConfig `yaml:"notification"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Redis        RedisConfig        `yaml:"redis"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// StorageConfig selects the booking store
type StorageConfig struct {
	Type string `yaml:"type"` // "postgres" or "memory"
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiry int    `yaml:"refresh_token_expiry_minutes"`
}

// PaymentConfig contains payment gateway settings
type PaymentConfig struct {
	Gateway       string `yaml:"gateway"` // only "mock" is built in
	CheckoutURL   string `yaml:"checkout_url"`
	Currency      string `yaml:"currency"`
	HoldMinutes   int    `yaml:"hold_minutes"` // 0 disables hold expiry
	WebhookSecret string `yaml:"webhook_secret"`
}

// NotificationConfig contains email settings. Email is disabled without an API key.
type NotificationConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	FrontDeskEmail string `yaml:"front_desk_email"`
}

// RabbitMQConfig contains the event publisher settings. Publishing is disabled without a URL.
type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// RedisConfig contains the webhook delivery guard settings. The guard is disabled without an address.
type RedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	DeliveryTTLHours int    `yaml:"delivery_ttl_hours"`
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	CompleteFinishedStays string `yaml:"complete_finished_stays"`
	ExpireUnpaidBookings  string `yaml:"expire_unpaid_bookings"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated configuration from YAML, applying environment overrides
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		fmt.Sscanf(val, "%d", dst)
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	setString("SERVER_HOST", &c.Server.Host)
	setInt("SERVER_PORT", &c.Server.Port)
	setInt("GRPC_PORT", &c.Server.GRPCPort)

	// Database
	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Database)
	setString("DB_SSL_MODE", &c.Database.SSLMode)

	setString("STORAGE_TYPE", &c.Storage.Type)

	// Log
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	// JWT
	setString("JWT_SECRET", &c.JWT.Secret)

	// Payment
	setString("PAYMENT_GATEWAY", &c.Payment.Gateway)
	setString("PAYMENT_CURRENCY", &c.Payment.Currency)
	setInt("PAYMENT_HOLD_MINUTES", &c.Payment.HoldMinutes)
	setString("PAYMENT_WEBHOOK_SECRET", &c.Payment.WebhookSecret)

	// Notification
	setString("SENDGRID_API_KEY", &c.Notification.SendGridAPIKey)
	setString("NOTIFY_FROM_EMAIL", &c.Notification.FromEmail)
	setString("NOTIFY_FRONT_DESK_EMAIL", &c.Notification.FrontDeskEmail)

	// Messaging and cache
	setString("RABBITMQ_URL", &c.RabbitMQ.URL)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setInt("REDIS_DB", &c.Redis.DB)
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 || c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Payment validation
	if c.Payment.Gateway == "" {
		c.Payment.Gateway = "mock"
	}
	if c.Payment.Gateway != "mock" {
		return fmt.Errorf("unsupported payment gateway: %q", c.Payment.Gateway)
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "USD"
	}
	if c.Payment.HoldMinutes < 0 {
		return fmt.Errorf("payment hold must not be negative: %d", c.Payment.HoldMinutes)
	}
	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}

	// Notification validation
	if c.Notification.SendGridAPIKey != "" && (c.Notification.FromEmail == "" || c.Notification.FrontDeskEmail == "") {
		return fmt.Errorf("from and front desk emails are required when SendGrid is enabled")
	}
	if c.Notification.FromName == "" {
		c.Notification.FromName = "Reservations"
	}

	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "booking.events"
	}
	if c.Redis.DeliveryTTLHours == 0 {
		c.Redis.DeliveryTTLHours = 24
	}

	// Scheduler defaults
	if c.Scheduler.CompleteFinishedStays == "" {
		c.Scheduler.CompleteFinishedStays = "0 0 12 * * *" // Noon UTC, after check-out time
	}
	if c.Scheduler.ExpireUnpaidBookings == "" {
		c.Scheduler.ExpireUnpaidBookings = "0 */5 * * * *" // Every 5 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) PaymentHold() time.Duration {
	return time.Duration(c.Payment.HoldMinutes) * time.Minute
}

func (c *Config) DeliveryTTL() time.Duration {
	return time.Duration(c.Redis.DeliveryTTLHours) * time.Hour
}

func (c *Config) AccessTokenExpiry() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}

func (c *Config) RefreshTokenExpiry() time.Duration {
	return time.Duration(c.JWT.RefreshTokenExpiry) * time.Minute
}
