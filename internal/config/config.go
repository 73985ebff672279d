package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	DatabaseDSN  string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	RabbitURL    string
	HoldTTL      time.Duration
	SweepEvery   time.Duration
	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 15 * time.Minute
	}
	sweepEvery, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweepEvery == 0 {
		sweepEvery = time.Minute
	}

	return &Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		DatabaseDSN:  os.Getenv("DATABASE_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      envOr("MONGO_DB", "eventapp"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		HoldTTL:      holdTTL,
		SweepEvery:   sweepEvery,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
