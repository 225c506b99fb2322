package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// config is the bridge configuration read from the environment.
type config struct {
	Credentials     client.Credentials
	RedisURL        string
	Port            string
	UserAgent       string
	LogLevel        logging.LogLevel
	LogPretty       bool
	OptionsCacheTTL time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	RateLimit       float64
	MaxRetries      int
	ContinueOnFail  bool
	ShutdownTimeout time.Duration
}

// loadConfig reads the environment, after loading .env when present.
func loadConfig() (config, error) {
	_ = godotenv.Load()

	cfg := config{
		Credentials: client.Credentials{
			BaseURL: os.Getenv("NETSENDO_BASE_URL"),
			APIKey:  os.Getenv("NETSENDO_API_KEY"),
		},
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		Port:            getEnv("PORT", "8080"),
		UserAgent:       getEnv("USER_AGENT", "netsendo-bridge/1.0"),
		LogLevel:        logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		LogPretty:       getEnvAsBool("LOG_PRETTY", false),
		OptionsCacheTTL: getEnvAsDuration("OPTIONS_CACHE_TTL", 5*time.Minute),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "netsendo.webhooks"),
		RateLimit:       getEnvAsFloat("RATE_LIMIT", 10),
		MaxRetries:      getEnvAsInt("MAX_RETRIES", 3),
		ContinueOnFail:  getEnvAsBool("CONTINUE_ON_FAIL", false),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Credentials.Validate(); err != nil {
		return cfg, err
	}
	if cfg.MaxRetries < 1 {
		return cfg, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}
	return cfg, nil
}

// redisOptions accepts a redis:// URL or a bare host:port.
func (c config) redisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		return redis.ParseURL(c.RedisURL)
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
