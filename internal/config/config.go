package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RabbitMQURL string

	KioskTimeout time.Duration

	DailyQuota             int
	ResetCutoffHour        int
	FanoutLookahead        int
	Language               string
	SignatureSegments      int
	SignatureSegmentLength int

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
	OTLPInsecure bool

	RateLimitPerMinute        int
	RateLimitBurst            int
	SessionRateLimitPerMinute int
	SessionRateLimitBurst     int
}

func Load() Config {
	// Missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	language := os.Getenv("NOTIFICATION_LANGUAGE")
	if language == "" {
		language = "en"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		KioskTimeout: readDurationSeconds("KIOSK_TIMEOUT_SECONDS", 10),

		DailyQuota:             readInt("DAILY_RESERVATION_QUOTA", 5),
		ResetCutoffHour:        readInt("RESET_CUTOFF_HOUR", 12),
		FanoutLookahead:        readInt("FANOUT_LOOKAHEAD", 5),
		Language:               language,
		SignatureSegments:      readInt("SIGNATURE_SEGMENTS", 2),
		SignatureSegmentLength: readInt("SIGNATURE_SEGMENT_LENGTH", 3),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: readBool("OTEL_EXPORTER_OTLP_INSECURE", false),

		RateLimitPerMinute:        readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:            readInt("RATE_LIMIT_BURST", 30),
		SessionRateLimitPerMinute: readInt("SESSION_RATE_LIMIT_PER_MIN", 600),
		SessionRateLimitBurst:     readInt("SESSION_RATE_LIMIT_BURST", 120),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
