// Package config loads the service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the verifykitd service configuration.
type Config struct {
	Environment string `validate:"oneof=development staging production"`
	ServerPort  string `validate:"required,numeric"`
	LogLevel    string `validate:"oneof=trace debug info warn error"`
	StaticDir   string

	// Pipeline tuning. The defaults are deliberately pessimistic: five
	// concurrent probes and a 200ms pause between groups keep external
	// mail servers from greylisting us.
	ConcurrentLimit int           `validate:"min=1,max=50"`
	RateLimitDelay  time.Duration `validate:"min=0"`
	SMTPTimeout     time.Duration `validate:"min=1s"`
	DNSTimeout      time.Duration `validate:"min=1s"`

	// SMTP identity presented to mail exchangers.
	HeloDomain string `validate:"required,fqdn"`
	MailFrom   string `validate:"required,email"`

	StopOnNoUser bool
}

var validate = validator.New()

// Load reads the configuration. A .env file is honored when present but
// never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		StaticDir:       getEnv("STATIC_DIR", "./public"),
		ConcurrentLimit: getEnvInt("VERIFY_CONCURRENT_LIMIT", 5),
		RateLimitDelay:  getEnvDuration("VERIFY_RATE_LIMIT_DELAY", 200*time.Millisecond),
		SMTPTimeout:     getEnvDuration("VERIFY_SMTP_TIMEOUT", 15*time.Second),
		DNSTimeout:      getEnvDuration("VERIFY_DNS_TIMEOUT", 5*time.Second),
		HeloDomain:      getEnv("VERIFY_HELO_DOMAIN", "email-validator.com"),
		MailFrom:        getEnv("VERIFY_MAIL_FROM", "check@email-validator.com"),
		StopOnNoUser:    getEnvBool("VERIFY_STOP_ON_NO_USER", false),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
