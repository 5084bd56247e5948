// Package config centralizes how the service reads environment variables and
// exposes them as strongly typed values.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	Address      string
	StoreBackend string
	StorePath    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	MaxFileSize  int64
	AllowedTypes []string
	Workers      int
	Language     string

	// QueueEnabled routes OCR through the Redis-backed task queue instead of
	// the in-process worker pool.
	QueueEnabled bool
}

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const (
	defaultAddress      = ":8080"
	defaultStorePath    = "data/reports.json"
	defaultRedisAddr    = "localhost:6379"
	defaultMaxFileSize  = 25 << 20 // 25 MiB
	defaultAllowedTypes = "image/png,image/jpeg,application/pdf"
	defaultWorkerCount  = 2
	defaultLanguage     = "eng"
)

// Load reads configuration from environment variables, falling back to
// defaults. A local .env file is applied first, best effort.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Address:       readEnv("MEDREPORTS_ADDRESS", defaultAddress),
		StoreBackend:  readEnv("MEDREPORTS_STORE", BackendFile),
		StorePath:     readEnv("MEDREPORTS_STORE_PATH", defaultStorePath),
		RedisAddr:     readEnv("MEDREPORTS_REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("MEDREPORTS_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("MEDREPORTS_REDIS_DB", 0),
		DatabaseURL:   readEnv("MEDREPORTS_DATABASE_URL", ""),
		MaxFileSize:   parseInt64("MEDREPORTS_MAX_FILE_BYTES", defaultMaxFileSize),
		AllowedTypes:  parseList("MEDREPORTS_ALLOWED_TYPES", defaultAllowedTypes),
		Workers:       parseInt("MEDREPORTS_WORKERS", defaultWorkerCount),
		Language:      readEnv("MEDREPORTS_OCR_LANGUAGE", defaultLanguage),
		QueueEnabled:  parseBool("MEDREPORTS_QUEUE_ENABLED", false),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	// LookupEnv distinguishes unset variables from empty ones; both fall back.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
