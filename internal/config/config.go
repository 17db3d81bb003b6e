package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort int

	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	ExchangeAPIBaseURL string
	ExchangeAPIKey     string
	BaseCurrency       string
	ExchangeTimeout    time.Duration

	KafkaBrokerURL           string
	KafkaTransferEventsTopic string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration

	UploadDir     string
	MaxUploadSize int64
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; values may come from the environment.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTPPort = getEnvAsInt("WALLETAPP_HTTP_PORT", 8080)

	cfg.DBConfig.Host = getEnvOrDefault("WALLETAPP_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("WALLETAPP_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("WALLETAPP_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("WALLETAPP_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("WALLETAPP_DB_NAME", "walletapp_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("WALLETAPP_DB_SSLMODE", "disable")

	cfg.MigrationsPath = getEnvOrDefault("WALLETAPP_MIGRATIONS_PATH", "file://migrations")

	cfg.RedisAddr = getEnvOrDefault("WALLETAPP_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvOrDefault("WALLETAPP_REDIS_PASSWORD", "")
	cfg.SessionTTL = getEnvAsDuration("WALLETAPP_SESSION_TTL", 24*time.Hour)

	cfg.ExchangeAPIBaseURL = getEnvOrDefault("EXCHANGE_RATE_API_URL", "https://v6.exchangerate-api.com/v6")
	cfg.ExchangeAPIKey = getEnvOrDefault("EXCHANGE_RATE_API_KEY", "")
	cfg.BaseCurrency = getEnvOrDefault("WALLETAPP_BASE_CURRENCY", "USD")
	cfg.ExchangeTimeout = getEnvAsDuration("EXCHANGE_RATE_API_TIMEOUT", 10*time.Second)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaTransferEventsTopic = getEnvOrDefault("KAFKA_TRANSFER_EVENTS_TOPIC", "transfer_events")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	cfg.UploadDir = getEnvOrDefault("WALLETAPP_UPLOAD_DIR", "assets")
	cfg.MaxUploadSize = int64(getEnvAsInt("WALLETAPP_MAX_UPLOAD_SIZE", 4*1024*1024))

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
