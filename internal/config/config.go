package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Lock        LockConfig
	JWT         JWTConfig
	Gateways    GatewaysConfig
	Platform    PlatformConfig
	Reservation ReservationConfig
	Sweeper     SweeperConfig
	RateLimit   RateLimitConfig
	AMQP        AMQPConfig
	Pricing     PricingConfig
	LogLevel    string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
	// PublicBaseURL is where providers reach the webhook endpoint
	PublicBaseURL string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// StorageConfig selects the repository implementation ("mongodb" or "memory")
type StorageConfig struct {
	Driver string
}

// RedisConfig enables the shared lock and token cache
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// LockConfig bounds how long a pool operation queues for its raffle lock,
// with either the local or the Redis locker
type LockConfig struct {
	Wait time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret string
}

// GatewaysConfig holds PIX provider endpoints
type GatewaysConfig struct {
	Timeout             time.Duration
	SyncPaymentsBaseURL string
	MercadoPagoBaseURL  string
}

// PlatformConfig holds the platform's own credentials, used for publication fees
type PlatformConfig struct {
	SyncPaymentsClientID     string
	SyncPaymentsClientSecret string
	MercadoPagoAccessToken   string
}

// ReservationConfig holds the hold window of pending reservations
type ReservationConfig struct {
	TTL time.Duration
}

// SweeperConfig holds the background sweep settings
type SweeperConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// RateLimitConfig holds the per-client limits of public routes
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// AMQPConfig enables domain event publishing when URL is set
type AMQPConfig struct {
	URL      string
	Exchange string
}

// PricingConfig overrides the publication fee tiers
type PricingConfig struct {
	Tiers []pricing.Tier
}

// Load loads configuration from an optional .env file, a config file and environment variables
func Load() (*Config, error) {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "mongodb", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Reservation.TTL <= 0 {
		return errors.New("Reservation.TTL must be positive")
	}
	if c.Lock.Wait <= 0 {
		return errors.New("Lock.Wait must be positive")
	}
	if c.Gateways.Timeout <= 0 {
		return errors.New("Gateways.Timeout must be positive")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT.Secret is required")
	}
	if len(c.Pricing.Tiers) > 0 {
		if _, err := pricing.NewResolver(c.Pricing.Tiers); err != nil {
			return fmt.Errorf("invalid Pricing.Tiers: %w", err)
		}
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Server.PublicBaseURL", "http://localhost:4000")
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "rifamania")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("Storage.Driver", "mongodb")
	v.SetDefault("Redis.Enabled", false)
	v.SetDefault("Redis.Addr", "localhost:6379")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.LockTTL", 10*time.Second)
	v.SetDefault("Lock.Wait", 3*time.Second)
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("Gateways.Timeout", 15*time.Second)
	v.SetDefault("Gateways.SyncPaymentsBaseURL", "https://api.syncpayments.com.br")
	v.SetDefault("Gateways.MercadoPagoBaseURL", "https://api.mercadopago.com")
	v.SetDefault("Platform.SyncPaymentsClientID", "")
	v.SetDefault("Platform.SyncPaymentsClientSecret", "")
	v.SetDefault("Platform.MercadoPagoAccessToken", "")
	v.SetDefault("Reservation.TTL", 30*time.Minute)
	v.SetDefault("Sweeper.Enabled", true)
	v.SetDefault("Sweeper.Interval", time.Minute)
	v.SetDefault("Sweeper.BatchSize", 200)
	v.SetDefault("RateLimit.RPS", 5.0)
	v.SetDefault("RateLimit.Burst", 10)
	v.SetDefault("AMQP.URL", "")
	v.SetDefault("AMQP.Exchange", "rifamania.events")
	v.SetDefault("LogLevel", "info")
}
