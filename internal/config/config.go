package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/route-directions/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Directions service configuration.
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Mode     domain.Mode
	Language string
	Region   string

	// Route cache configuration.
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration

	// Resolution policy.
	OptimizeWaypoints bool

	// Route publishing. Empty KafkaBrokers disables the publisher.
	KafkaBrokers    []string
	KafkaRouteTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := parsePositiveDuration("DIRECTIONS_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("DIRECTIONS_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	mode, err := domain.ParseMode(os.Getenv("DIRECTIONS_MODE"))
	if err != nil {
		return nil, errors.New("invalid DIRECTIONS_MODE")
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	cacheEnabled, err := parseBool("DIRECTIONS_CACHE_ENABLED", true)
	if err != nil {
		return nil, err
	}
	optimize, err := parseBool("OPTIMIZE_WAYPOINTS", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		APIKey:   os.Getenv("DIRECTIONS_API_KEY"),
		BaseURL:  sharedcfg.EnvOrDefault("DIRECTIONS_BASE_URL", domain.DefaultBaseURL),
		Timeout:  timeout,
		Mode:     mode,
		Language: sharedcfg.EnvOrDefault("DIRECTIONS_LANGUAGE", domain.DefaultLanguage),
		Region:   os.Getenv("DIRECTIONS_REGION"),

		CacheEnabled: cacheEnabled,
		CacheSize:    cacheSize,
		CacheTTL:     cacheTTL,

		OptimizeWaypoints: optimize,

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaRouteTopic: sharedcfg.EnvOrDefault("KAFKA_ROUTE_TOPIC", "resolved-routes"),
	}

	if cfg.APIKey == "" {
		return nil, errors.New("DIRECTIONS_API_KEY is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaRouteTopic == "" {
		return nil, errors.New("KAFKA_ROUTE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ResetOnChange reads RESET_ON_CHANGE, the default clear-before-refetch
// policy for long-lived route displays. Unset means true.
func ResetOnChange() (bool, error) {
	return parseBool("RESET_ON_CHANGE", true)
}

// PublishEnabled reports whether resolved routes are written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("invalid " + key)
	}
	return b, nil
}

func parseCacheSize() (int, error) {
	s := os.Getenv("DIRECTIONS_CACHE_SIZE")
	if s == "" {
		return 1000, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid DIRECTIONS_CACHE_SIZE")
	}
	return n, nil
}
