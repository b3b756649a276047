package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Log      LogConfig
	Booking  BookingConfig
	Sweeper  SweeperConfig
	Queue    QueueConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// BookingConfig holds the pricing and scheduling rules for bookings.
type BookingConfig struct {
	TimeZone                  string
	DistanceRate              float64
	Tax                       float64
	DriverFee                 float64
	CancellationWindow        time.Duration
	CancellationFeeRate       float64
	LockTTL                   time.Duration
	CacheTTL                  time.Duration
	NotificationSubjectPrefix string
}

// SweeperConfig holds the reconciliation sweeper configuration.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
}

// QueueConfig holds the notification queue configuration. When disabled,
// notifications are only logged.
type QueueConfig struct {
	Enabled     bool
	RedisDB     int
	Concurrency int
	MaxRetry    int
}

// Load reads an optional .env file and config.yaml, then environment
// variables, and returns the resulting configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			ReadTimeout:    v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Booking: BookingConfig{
			TimeZone:                  v.GetString("BOOKING_TIMEZONE"),
			DistanceRate:              v.GetFloat64("BOOKING_DISTANCE_RATE"),
			Tax:                       v.GetFloat64("BOOKING_TAX"),
			DriverFee:                 v.GetFloat64("BOOKING_DRIVER_FEE"),
			CancellationWindow:        v.GetDuration("BOOKING_CANCELLATION_WINDOW"),
			CancellationFeeRate:       v.GetFloat64("BOOKING_CANCELLATION_FEE_RATE"),
			LockTTL:                   v.GetDuration("BOOKING_LOCK_TTL"),
			CacheTTL:                  v.GetDuration("BOOKING_CACHE_TTL"),
			NotificationSubjectPrefix: v.GetString("BOOKING_SUBJECT_PREFIX"),
		},
		Sweeper: SweeperConfig{
			Enabled:  v.GetBool("SWEEPER_ENABLED"),
			Interval: v.GetDuration("SWEEPER_INTERVAL"),
			LockTTL:  v.GetDuration("SWEEPER_LOCK_TTL"),
		},
		Queue: QueueConfig{
			Enabled:     v.GetBool("QUEUE_ENABLED"),
			RedisDB:     v.GetInt("QUEUE_REDIS_DB"),
			Concurrency: v.GetInt("QUEUE_CONCURRENCY"),
			MaxRetry:    v.GetInt("QUEUE_MAX_RETRY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cab_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NEW_RELIC_APP_NAME", "cab-booking-service")
	v.SetDefault("NEW_RELIC_LICENSE_KEY", "")
	v.SetDefault("NEW_RELIC_ENABLED", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_TIMEZONE", "Asia/Colombo")
	v.SetDefault("BOOKING_DISTANCE_RATE", 1.5)
	v.SetDefault("BOOKING_TAX", 2.5)
	v.SetDefault("BOOKING_DRIVER_FEE", 50.0)
	v.SetDefault("BOOKING_CANCELLATION_WINDOW", 24*time.Hour)
	v.SetDefault("BOOKING_CANCELLATION_FEE_RATE", 0.10)
	v.SetDefault("BOOKING_LOCK_TTL", 10*time.Second)
	v.SetDefault("BOOKING_CACHE_TTL", 30*time.Second)
	v.SetDefault("BOOKING_SUBJECT_PREFIX", "MegaCityCab")

	v.SetDefault("SWEEPER_ENABLED", true)
	v.SetDefault("SWEEPER_INTERVAL", 5*time.Second)
	v.SetDefault("SWEEPER_LOCK_TTL", 30*time.Second)

	v.SetDefault("QUEUE_ENABLED", false)
	v.SetDefault("QUEUE_REDIS_DB", 1)
	v.SetDefault("QUEUE_CONCURRENCY", 10)
	v.SetDefault("QUEUE_MAX_RETRY", 5)
}

// Validate checks values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Booking.DistanceRate < 0 || c.Booking.Tax < 0 || c.Booking.DriverFee < 0 {
		return errors.New("booking rates must not be negative")
	}
	if c.Booking.CancellationFeeRate < 0 || c.Booking.CancellationFeeRate > 1 {
		return fmt.Errorf("cancellation fee rate must be within [0, 1], got %v", c.Booking.CancellationFeeRate)
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive, got %s", c.Sweeper.Interval)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
