// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored when present (development convenience);
// real deployments set variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server and CLI need at startup.
type Config struct {
	Addr     string
	SiteURL  string
	MediaDir string

	DatabaseURL string

	Redis RedisConfig

	Kafka KafkaConfig

	SMTP SMTPConfig

	// AdminEmail receives staff-facing reminder copies.
	AdminEmail string

	JWTSigningKey string
	TokenTTL      time.Duration

	// Reminder day thresholds. Defaults preserve the historical behavior:
	// single-certificate checks use a narrower set than the daily sweep.
	SingleExpiryDays []int
	BatchExpiryDays  []int
	InspectionDays   []int

	// SweepInterval is how often the background sweep recomputes statuses and
	// evaluates reminders. Zero disables the in-process sweeper (use certctl
	// from cron instead).
	SweepInterval time.Duration
}

// RedisConfig configures the notification log store.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// KafkaConfig configures the lifecycle event publisher. Empty Seeds disables
// publishing.
type KafkaConfig struct {
	Seeds []string
	Topic string
}

// SMTPConfig configures the outbound mailer. Empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from the environment, applying defaults suitable
// for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:        envOr("CERTREGISTRY_ADDR", ":8080"),
		SiteURL:     envOr("CERTREGISTRY_SITE_URL", "http://localhost:8080"),
		MediaDir:    envOr("CERTREGISTRY_MEDIA_DIR", "media"),
		DatabaseURL: os.Getenv("CERTREGISTRY_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CERTREGISTRY_REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Kafka: KafkaConfig{
			Seeds: splitList(os.Getenv("CERTREGISTRY_KAFKA_SEEDS")),
			Topic: envOr("CERTREGISTRY_KAFKA_TOPIC", "certificate-events"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("CERTREGISTRY_SMTP_HOST"),
			Port:     envInt("CERTREGISTRY_SMTP_PORT", 587),
			Username: os.Getenv("CERTREGISTRY_SMTP_USERNAME"),
			Password: os.Getenv("CERTREGISTRY_SMTP_PASSWORD"),
			From:     envOr("CERTREGISTRY_SMTP_FROM", "noreply@localhost"),
		},
		AdminEmail:    envOr("CERTREGISTRY_ADMIN_EMAIL", "info@export-center.ru"),
		JWTSigningKey: envOr("CERTREGISTRY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      envDuration("CERTREGISTRY_TOKEN_TTL", 12*time.Hour),

		SingleExpiryDays: envDays("CERTREGISTRY_SINGLE_EXPIRY_DAYS", []int{30, 15}),
		BatchExpiryDays:  envDays("CERTREGISTRY_BATCH_EXPIRY_DAYS", []int{30, 15, 7, 1}),
		InspectionDays:   envDays("CERTREGISTRY_INSPECTION_DAYS", []int{30, 15, 7}),

		SweepInterval: envDuration("CERTREGISTRY_SWEEP_INTERVAL", 0),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envDays(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var days []int
	for _, part := range splitList(v) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return fallback
		}
		days = append(days, n)
	}
	if len(days) == 0 {
		return fallback
	}
	return days
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
