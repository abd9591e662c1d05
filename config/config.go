package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server
	Port      string
	JWTSecret string

	// Payment platform
	PlatformAPIURL  string
	PlatformAPIKey  string
	PlatformTimeout time.Duration

	// Redis (rate limiting); disabled when unset
	RedisURL string

	// PubNub (payment notifications); disabled when unset
	PubNubPublishKey   string
	PubNubSubscribeKey string

	// Rate limiting
	RateLimit       int64
	RateLimitWindow time.Duration

	EnableMetrics bool
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		Port:      getEnv("PORT", "8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		PlatformAPIURL:  getEnv("PLATFORM_API_URL", "https://api.minepi.com"),
		PlatformAPIKey:  os.Getenv("PLATFORM_API_KEY"),
		PlatformTimeout: getEnvAsDuration("PLATFORM_TIMEOUT", "20s"),

		RedisURL: os.Getenv("REDIS_URL"),

		PubNubPublishKey:   os.Getenv("PUBNUB_PUBLISH_KEY"),
		PubNubSubscribeKey: os.Getenv("PUBNUB_SUBSCRIBE_KEY"),

		RateLimit:       getEnvAsInt64("RATE_LIMIT", 60),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}, nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

// createTicketConstraints installs the partial unique index that makes the
// store, not application pre-checks, the source of truth for the
// one-ticket-per-attendee invariant. Cancelled tickets free the slot.
func createTicketConstraints(db *gorm.DB) error {
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_event_owner_live
		ON tickets (event_id, owner_id)
		WHERE status <> 'cancelled'`).Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.User{}, &models.Event{}, &models.Ticket{}, &models.Transaction{})
	if err != nil {
		return nil, err
	}

	if err := createTicketConstraints(db); err != nil {
		return nil, err
	}

	return db, nil
}

// InitRedis connects the rate-limiting client. Returns nil when no redis is
// configured; the limiter is simply not installed then.
func InitRedis(cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	return redis.NewClient(opts), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if duration, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
