package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	DefaultModel  string
	IdeaModel     string

	FallbackPricingModel string
	PricingFile          string

	UnsplashAccessKey string
	UnsplashBaseURL   string
	ImageCacheTTL     time.Duration

	BillingWebhookURL    string
	BillingWebhookSecret string
	BillingSinks         []string
	BillingTimeout       time.Duration
	SNSTopicARN          string
	SQSQueueURL          string
	AWSRegion            string
	MonthlyBudgetUSD     float64
	WalletCreditSecret   string

	RedisURL     string
	DatabaseURL  string
	OTLPEndpoint string

	GenerateRPM           int
	MaxGenerationDuration time.Duration
	ShutdownTimeout       time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{
		Addr:                  getEnv("ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DefaultModel:          getEnv("DEFAULT_MODEL", "gpt-5"),
		IdeaModel:             getEnv("IDEA_MODEL", "gpt-5-mini"),
		FallbackPricingModel:  getEnv("FALLBACK_PRICING_MODEL", "gpt-4o"),
		PricingFile:           getEnv("PRICING_FILE", ""),
		UnsplashAccessKey:     getEnv("UNSPLASH_ACCESS_KEY", ""),
		UnsplashBaseURL:       getEnv("UNSPLASH_BASE_URL", "https://api.unsplash.com"),
		ImageCacheTTL:         getDurationEnv("IMAGE_CACHE_TTL", time.Hour),
		BillingWebhookURL:     getEnv("BILLING_WEBHOOK_URL", ""),
		BillingWebhookSecret:  getEnv("BILLING_WEBHOOK_SECRET", ""),
		BillingSinks:          getListEnv("BILLING_SINKS", []string{"webhook"}),
		BillingTimeout:        getDurationEnv("BILLING_TIMEOUT", 10*time.Second),
		SNSTopicARN:           getEnv("SNS_TOPIC_ARN", ""),
		SQSQueueURL:           getEnv("SQS_QUEUE_URL", ""),
		AWSRegion:             getEnv("AWS_REGION", ""),
		MonthlyBudgetUSD:      getFloatEnv("USER_MONTHLY_BUDGET_USD", 0),
		WalletCreditSecret:    getEnv("WALLET_CREDIT_SECRET", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		OTLPEndpoint:          getEnv("OTLP_ENDPOINT", ""),
		GenerateRPM:           getIntEnv("GENERATE_RPM", 10),
		MaxGenerationDuration: getDurationEnv("MAX_GENERATION_DURATION", 300*time.Second),
		ShutdownTimeout:       getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// RelaysWebhook reports whether webhook delivery goes through the SQS outbox
// relay instead of being called directly.
func (c *Config) RelaysWebhook() bool {
	return c.HasSink("sqs") && c.BillingWebhookURL != ""
}

// HasSink reports whether name is one of the configured billing sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.BillingSinks {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDurationEnv accepts either whole seconds ("300") or a Go duration ("5m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
