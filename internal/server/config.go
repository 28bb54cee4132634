package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campuslink/campuslink/internal/chat"
)

// Config holds the server's runtime settings. Values come from the
// environment with sane defaults; sanitize backfills anything invalid.
type Config struct {
	Port           string
	MongoURL       string
	SecretKey      string
	AllowedOrigins []string
	MaxMessageSize int64
	SendTimeout    time.Duration
	TokenTTL       time.Duration
	RateLimit      chat.RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Port:           ":8080",
		MongoURL:       "mongodb://localhost:27017",
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 64 * 1024,
		SendTimeout:    5 * time.Second,
		TokenTTL:       3000 * time.Minute,
		RateLimit: chat.RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
	}
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv builds a Config from environment variables, falling back
// to defaults for anything unset or unparseable.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if url := os.Getenv("MONGODB_URL"); url != "" {
		cfg.MongoURL = url
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		cfg.SecretKey = secret
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64(maxSize, cfg.MaxMessageSize)
	}
	if timeout := os.Getenv("SEND_TIMEOUT"); timeout != "" {
		cfg.SendTimeout = parseSeconds(timeout, cfg.SendTimeout)
	}
	if ttl := os.Getenv("TOKEN_TTL_MINUTES"); ttl != "" {
		if minutes := parseInt(ttl, 0); minutes > 0 {
			cfg.TokenTTL = time.Duration(minutes) * time.Minute
		}
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseInt(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	return &cfg
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MongoURL == "" {
		cfg.MongoURL = def.MongoURL
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
