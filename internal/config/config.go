package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Delivery DeliveryConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

// SMTPConfig is the outbound transport configuration for the campaign
// mailer. Host and Username/Password (when RequiresAuth) must be set
// before any dispatch begins.
type SMTPConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	FromEmail         string
	SupportsTLS       bool
	RequiresAuth      bool
	MaxSendRate       int
	MaxConnections    int
	MaxMessages       int
	ConnectionTimeout time.Duration
	GreetingTimeout   time.Duration
	SocketTimeout     time.Duration
}

// DeliveryConfig holds the default pacing and retry settings applied to
// campaigns that do not override them per dispatch request.
type DeliveryConfig struct {
	BatchSize       int
	BatchDelay      time.Duration
	ChunkSize       int
	ChunkDelay      time.Duration
	MaxRetries      int
	MaxBackoffDelay time.Duration
	RetryChunkSizes []int
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "tern"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:              getEnv("SMTP_HOST", ""),
			Port:              getEnvAsInt("SMTP_PORT", 587),
			Username:          getEnv("SMTP_USERNAME", ""),
			Password:          getEnv("SMTP_PASSWORD", ""),
			FromEmail:         getEnv("SMTP_FROM", ""),
			SupportsTLS:       getEnvAsBool("SMTP_TLS", true),
			RequiresAuth:      getEnvAsBool("SMTP_AUTH", true),
			MaxSendRate:       getEnvAsInt("SMTP_MAX_SEND_RATE", 10),
			MaxConnections:    getEnvAsInt("SMTP_MAX_CONNECTIONS", 1),
			MaxMessages:       getEnvAsInt("SMTP_MAX_MESSAGES", 100),
			ConnectionTimeout: getEnvAsDuration("SMTP_CONNECTION_TIMEOUT_MS", 10*time.Second),
			GreetingTimeout:   getEnvAsDuration("SMTP_GREETING_TIMEOUT_MS", 10*time.Second),
			SocketTimeout:     getEnvAsDuration("SMTP_SOCKET_TIMEOUT_MS", 30*time.Second),
		},
		Delivery: DeliveryConfig{
			BatchSize:       getEnvAsInt("DELIVERY_BATCH_SIZE", 5),
			BatchDelay:      getEnvAsDuration("DELIVERY_BATCH_DELAY_MS", 5000*time.Millisecond),
			ChunkSize:       getEnvAsInt("DELIVERY_CHUNK_SIZE", 50),
			ChunkDelay:      getEnvAsDuration("DELIVERY_CHUNK_DELAY_MS", 1000*time.Millisecond),
			MaxRetries:      getEnvAsInt("DELIVERY_MAX_RETRIES", 3),
			MaxBackoffDelay: getEnvAsDuration("DELIVERY_MAX_BACKOFF_MS", 30000*time.Millisecond),
			RetryChunkSizes: getEnvAsInts("DELIVERY_RETRY_CHUNK_SIZES", []int{10, 1}),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a millisecond count from the environment.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// getEnvAsInts reads a comma-separated list of integers.
func getEnvAsInts(key string, defaultValue []int) []int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
