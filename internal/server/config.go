package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds HTTP service settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration

	// RedisAddr enables the content cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ContentTTL    time.Duration

	// AMQPURL enables session events when set.
	AMQPURL  string
	Exchange string
}

// DefaultConfig returns local development settings.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RequestTimeout: 30 * time.Second,
		ContentTTL:     5 * time.Minute,
		Exchange:       "missionkit.events",
	}
}

// ConfigFromEnv overlays MISSIONKIT_* variables on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("MISSIONKIT_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("MISSIONKIT_CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("MISSIONKIT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	cfg.RedisPassword = os.Getenv("MISSIONKIT_REDIS_PASSWORD")
	if v, err := strconv.Atoi(os.Getenv("MISSIONKIT_REDIS_DB")); err == nil {
		cfg.RedisDB = v
	}
	if v, err := time.ParseDuration(os.Getenv("MISSIONKIT_CONTENT_TTL")); err == nil && v > 0 {
		cfg.ContentTTL = v
	}
	if v := os.Getenv("MISSIONKIT_AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("MISSIONKIT_AMQP_EXCHANGE"); v != "" {
		cfg.Exchange = v
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
