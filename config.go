package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ehson1111/chocoberry-bot/database"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Env  string `validate:"required"`
	Port string `validate:"required,numeric"`

	Postgres database.PostgresConfig

	RedisURL        string
	SessionStore    string        `validate:"oneof=redis memory"`
	SessionTTL      time.Duration `validate:"gte=0"`
	CatalogCacheTTL time.Duration `validate:"gte=0"`

	NotifySink          string `validate:"oneof=telegram sns log"`
	TelegramBotToken    string `validate:"required_if=NotifySink telegram"`
	TelegramAPIURL      string
	StaffChatID         string `validate:"required_if=NotifySink telegram"`
	StaffSNSTopicARN    string `validate:"required_if=NotifySink sns"`
	NotifyRetryQueueURL string
	NotifyTimeout       time.Duration `validate:"gt=0"`
	NotifyWait          time.Duration `validate:"gte=0"`

	KafkaBrokers     []string
	OrderEventsTopic string

	RateLimitPerMin int `validate:"gte=0"`

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
}

// LoadConfig reads .env (if present) and the environment, with an optional
// Secrets Manager override for credentials.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionStore:        getEnv("SESSION_STORE", "redis"),
		NotifySink:          getEnv("NOTIFY_SINK", "log"),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAPIURL:      os.Getenv("TELEGRAM_API_URL"),
		StaffChatID:         os.Getenv("STAFF_CHAT_ID"),
		StaffSNSTopicARN:    os.Getenv("STAFF_SNS_TOPIC_ARN"),
		NotifyRetryQueueURL: os.Getenv("NOTIFY_RETRY_QUEUE_URL"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:    getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Chocoberry"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/chocoberry/backend"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyWait, err = getDuration("NOTIFY_WAIT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MIN", "120")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MIN: %w", err)
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		applySecrets(cfg)
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DBName == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applySecrets overrides DB credentials and the bot token when running on AWS.
// Failures leave the environment values in place.
func applySecrets(cfg *Config) {
	ctx := context.Background()
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	_ = sm.Override(ctx, "chocoberry/DB_CREDENTIALS", map[string]*string{
		"POSTGRES_USER":     &cfg.Postgres.User,
		"POSTGRES_PASSWORD": &cfg.Postgres.Password,
		"POSTGRES_DB":       &cfg.Postgres.DBName,
		"POSTGRES_HOST":     &cfg.Postgres.Host,
		"POSTGRES_PORT":     &cfg.Postgres.Port,
	})
	if v, err := sm.GetSecret(ctx, "chocoberry/TELEGRAM_BOT_TOKEN"); err == nil {
		override(&cfg.TelegramBotToken, v)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
