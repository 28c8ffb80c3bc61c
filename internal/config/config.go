package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty means the API runs open; set a key to require Bearer
	// auth on the document endpoints.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Splitting
	MaxPartPages int

	// Session state
	SessionTTL time.Duration

	// Throttling for the expensive operations (upload, generate).
	OpRate  float64
	OpBurst int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8080"),

		APIKey: os.Getenv("SEPARATOR_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 209715200), // 200MB, textbooks are big

		MaxPartPages: envInt("MAX_PART_PAGES", 25),

		SessionTTL: envDuration("SESSION_TTL", 1*time.Hour),

		OpRate:  envFloat("OP_RATE", 1),
		OpBurst: envInt("OP_BURST", 5),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 209715200
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.OpRate <= 0 {
		cfg.OpRate = 1
	}
	if cfg.OpBurst <= 0 {
		cfg.OpBurst = 5
	}

	return cfg
}

// Validate rejects settings that cannot be defaulted away. MAX_PART_PAGES
// drives range math everywhere, so an explicit bad value fails startup
// instead of being silently replaced.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.MaxPartPages < 1 {
		return fmt.Errorf("MAX_PART_PAGES must be at least 1, got %d", c.MaxPartPages)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
