package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for persisted carts
const (
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"
	StorageBackendS3       = "s3"
)

// defaultSessionSecret is only accepted in development
const defaultSessionSecret = "your-session-secret"

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Cart     CartConfig
	Database DatabaseConfig
	Redis    RedisConfig
	S3       S3Config
	Session  SessionConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type LogConfig struct {
	Level  string
	Format string
}

type CartConfig struct {
	StorageBackend string
	StorageKey     string        // namespace for persisted carts
	PersistTimeout time.Duration // per write-through call
	FlushSchedule  string        // cron spec for retrying failed writes
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Cart: CartConfig{
			StorageBackend: strings.ToLower(getEnv("CART_STORAGE_BACKEND", StorageBackendMemory)),
			StorageKey:     getEnv("CART_STORAGE_KEY", "cart-storage"),
			PersistTimeout: parseDuration(getEnv("CART_PERSIST_TIMEOUT", "3s"), 3*time.Second),
			FlushSchedule:  getEnv("CART_FLUSH_SCHEDULE", "@every 30s"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "me-south-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "storefront-carts"),
			Prefix:          getEnv("AWS_S3_PREFIX", "carts"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", defaultSessionSecret),
			TTL:          parseDuration(getEnv("SESSION_TTL", "720h"), 720*time.Hour),
			SecureCookie: getEnv("SESSION_SECURE_COOKIE", "false") == "true",
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Cart.StorageBackend {
	case StorageBackendMemory, StorageBackendPostgres, StorageBackendRedis, StorageBackendS3:
	default:
		return fmt.Errorf("unsupported cart storage backend %q", c.Cart.StorageBackend)
	}
	if strings.TrimSpace(c.Cart.StorageKey) == "" {
		return fmt.Errorf("cart storage key must not be empty")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret must not be empty")
	}
	if c.Session.Secret == defaultSessionSecret && c.Server.Environment != "development" {
		return fmt.Errorf("SESSION_SECRET must be set outside development")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
