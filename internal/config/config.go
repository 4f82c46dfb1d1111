package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	SSLMode string

	RedisHost string
	RedisPort string

	NatsHost string
	NatsPort string

	ApiPort    string
	ApiEnabled string

	ModelAPIURL  string
	ModelAPIKey  string
	ModelName    string
	ModelTimeout time.Duration
	ModelRPS     int

	PaymentAPIURL  string
	PaymentAPIKey  string
	PaymentTimeout time.Duration

	ExtractMaxAttempts int
	GenerationCost     int64
	StarterCredits     int64
}

// New loads and validates configuration from environment variables.
// Missing external credentials are a hard startup failure: the process must
// refuse to serve rather than discover a misconfiguration mid-request.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:  os.Getenv("WISHFORGE_POSTGRES_USER"),
		DBPass:  os.Getenv("WISHFORGE_POSTGRES_PASSWORD"),
		DBHost:  os.Getenv("WISHFORGE_POSTGRES_HOST"),
		DBPort:  os.Getenv("WISHFORGE_POSTGRES_PORT"),
		DBName:  os.Getenv("WISHFORGE_POSTGRES_DB"),
		SSLMode: os.Getenv("WISHFORGE_POSTGRES_SSLMODE"),

		RedisHost: os.Getenv("WISHFORGE_REDIS_HOST"),
		RedisPort: os.Getenv("WISHFORGE_REDIS_PORT"),

		NatsHost: os.Getenv("WISHFORGE_NATS_HOST"),
		NatsPort: os.Getenv("WISHFORGE_NATS_PORT"),

		ApiPort:    os.Getenv("WISHFORGE_API_PORT"),
		ApiEnabled: os.Getenv("WISHFORGE_API_ENABLED"),

		ModelAPIURL:  os.Getenv("WISHFORGE_MODEL_API_URL"),
		ModelAPIKey:  os.Getenv("WISHFORGE_MODEL_API_KEY"),
		ModelName:    getEnv("WISHFORGE_MODEL_NAME", "wish-composer-1"),
		ModelTimeout: getEnvDuration("WISHFORGE_MODEL_TIMEOUT", 12*time.Second),
		ModelRPS:     getEnvInt("WISHFORGE_MODEL_RPS", 10),

		PaymentAPIURL:  os.Getenv("WISHFORGE_PAYMENT_API_URL"),
		PaymentAPIKey:  os.Getenv("WISHFORGE_PAYMENT_API_KEY"),
		PaymentTimeout: getEnvDuration("WISHFORGE_PAYMENT_TIMEOUT", 15*time.Second),

		ExtractMaxAttempts: getEnvInt("WISHFORGE_EXTRACT_MAX_ATTEMPTS", 3),
		GenerationCost:     int64(getEnvInt("WISHFORGE_GENERATION_COST", 1)),
		StarterCredits:     int64(getEnvInt("WISHFORGE_STARTER_CREDITS", 3)),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: WISHFORGE_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: WISHFORGE_REDIS_HOST/PORT")
	}

	// Required: nats
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: WISHFORGE_NATS_HOST/PORT")
	}

	// Required: model provider credentials
	if cfg.ModelAPIURL == "" || cfg.ModelAPIKey == "" {
		return nil, fmt.Errorf("missing required env for model provider: WISHFORGE_MODEL_API_URL/KEY")
	}

	// Required: payment processor credentials
	if cfg.PaymentAPIURL == "" || cfg.PaymentAPIKey == "" {
		return nil, fmt.Errorf("missing required env for payment processor: WISHFORGE_PAYMENT_API_URL/KEY")
	}

	if cfg.ExtractMaxAttempts < 1 {
		return nil, fmt.Errorf("WISHFORGE_EXTRACT_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.GenerationCost < 1 {
		return nil, fmt.Errorf("WISHFORGE_GENERATION_COST must be >= 1")
	}
	if cfg.StarterCredits < 0 {
		return nil, fmt.Errorf("WISHFORGE_STARTER_CREDITS must be >= 0")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if WISHFORGE_API_ENABLED != "true" — callers should skip
// starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("WISHFORGE_API_PORT is required when WISHFORGE_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (WISHFORGE_API_ENABLED != true)")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
