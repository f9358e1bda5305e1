package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Resolver ResolverConfig `yaml:"resolver"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	MetricsEnabled    bool          `yaml:"metricsEnabled"`
	AllowedOriginsCSV string        `yaml:"allowedOrigins"`
}

// UpstreamConfig describes the three public data sources and the shared
// politeness limits applied to calls against them.
type UpstreamConfig struct {
	MetadataBaseURL    string        `yaml:"metadataBaseUrl"`
	SearchBaseURL      string        `yaml:"searchBaseUrl"`
	FilingStoreBaseURL string        `yaml:"filingStoreBaseUrl"`
	UserAgent          string        `yaml:"userAgent"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	RateLimitPerSec    float64       `yaml:"rateLimitPerSec"`
	RateLimitBurst     int           `yaml:"rateLimitBurst"`
}

// ResolverConfig carries the traversal engine tunables. The upstream services
// do not publish their rate limits, so retry and fan-out parameters stay
// configurable rather than hard-coded.
type ResolverConfig struct {
	Workers         int           `yaml:"workers"`
	MaxDepth        int           `yaml:"maxDepth"`
	RetryAttempts   int           `yaml:"retryAttempts"`
	RetryInitial    time.Duration `yaml:"retryInitial"`
	RetryMaxWait    time.Duration `yaml:"retryMaxWait"`
	RequestDeadline time.Duration `yaml:"requestDeadline"`
	CacheSize       int           `yaml:"cacheSize"`
}

// ArchiveConfig describes the optional graph archive (Neo4j). The resolver
// itself keeps nothing across requests; archiving is an opt-in sink.
type ArchiveConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	MaxConnections int    `yaml:"maxConnections"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"includeCaller"`
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	defaultMetadataBaseURL    = "https://projects.propublica.org/nonprofits/api/v2"
	defaultSearchBaseURL      = "https://efts.irs.gov/LATEST/search-index"
	defaultFilingStoreBaseURL = "https://s3.amazonaws.com/irs-form-990"
	defaultUserAgent          = "entitygraph/0.1 (signalpot.dev)"
	defaultUpstreamTimeout    = 15 * time.Second
	defaultRatePerSec         = 5.0
	defaultRateBurst          = 10

	defaultWorkers         = 4
	defaultMaxDepth        = 5
	defaultRetryAttempts   = 3
	defaultRetryInitial    = 250 * time.Millisecond
	defaultRetryMaxWait    = 5 * time.Second
	defaultRequestDeadline = 90 * time.Second
	defaultCacheSize       = 512

	defaultArchiveMaxConns = 10
)

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then applies environment variable overrides on top of defaults.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Resolver.MaxDepth < 0 {
		return Config{}, fmt.Errorf("resolver maxDepth must not be negative")
	}
	if cfg.Resolver.Workers <= 0 {
		cfg.Resolver.Workers = defaultWorkers
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Upstream: UpstreamConfig{
			MetadataBaseURL:    defaultMetadataBaseURL,
			SearchBaseURL:      defaultSearchBaseURL,
			FilingStoreBaseURL: defaultFilingStoreBaseURL,
			UserAgent:          defaultUserAgent,
			RequestTimeout:     defaultUpstreamTimeout,
			RateLimitPerSec:    defaultRatePerSec,
			RateLimitBurst:     defaultRateBurst,
		},
		Resolver: ResolverConfig{
			Workers:         defaultWorkers,
			MaxDepth:        defaultMaxDepth,
			RetryAttempts:   defaultRetryAttempts,
			RetryInitial:    defaultRetryInitial,
			RetryMaxWait:    defaultRetryMaxWait,
			RequestDeadline: defaultRequestDeadline,
			CacheSize:       defaultCacheSize,
		},
		Archive: ArchiveConfig{
			MaxConnections: defaultArchiveMaxConns,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)

	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return err
	}
	cfg.HTTP.Port = port

	if err := overrideDuration("SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}
	if err := overrideDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout); err != nil {
		return err
	}
	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", cfg.HTTP.MetricsEnabled)
	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)

	cfg.Upstream.MetadataBaseURL = valueOrDefault("UPSTREAM_METADATA_URL", cfg.Upstream.MetadataBaseURL)
	cfg.Upstream.SearchBaseURL = valueOrDefault("UPSTREAM_SEARCH_URL", cfg.Upstream.SearchBaseURL)
	cfg.Upstream.FilingStoreBaseURL = valueOrDefault("UPSTREAM_FILING_STORE_URL", cfg.Upstream.FilingStoreBaseURL)
	cfg.Upstream.UserAgent = valueOrDefault("UPSTREAM_USER_AGENT", cfg.Upstream.UserAgent)
	if err := overrideDuration("UPSTREAM_REQUEST_TIMEOUT", &cfg.Upstream.RequestTimeout); err != nil {
		return err
	}
	cfg.Upstream.RateLimitPerSec = parseFloatWithDefault("UPSTREAM_RATE_LIMIT", cfg.Upstream.RateLimitPerSec)
	cfg.Upstream.RateLimitBurst = parseIntWithDefault("UPSTREAM_RATE_BURST", cfg.Upstream.RateLimitBurst)

	cfg.Resolver.Workers = parseIntWithDefault("RESOLVER_WORKERS", cfg.Resolver.Workers)
	cfg.Resolver.MaxDepth = parseIntWithDefault("RESOLVER_MAX_DEPTH", cfg.Resolver.MaxDepth)
	cfg.Resolver.RetryAttempts = parseIntWithDefault("RESOLVER_RETRY_ATTEMPTS", cfg.Resolver.RetryAttempts)
	if err := overrideDuration("RESOLVER_RETRY_INITIAL", &cfg.Resolver.RetryInitial); err != nil {
		return err
	}
	if err := overrideDuration("RESOLVER_RETRY_MAX_WAIT", &cfg.Resolver.RetryMaxWait); err != nil {
		return err
	}
	if err := overrideDuration("RESOLVER_REQUEST_DEADLINE", &cfg.Resolver.RequestDeadline); err != nil {
		return err
	}
	cfg.Resolver.CacheSize = parseIntWithDefault("RESOLVER_CACHE_SIZE", cfg.Resolver.CacheSize)

	cfg.Archive.Enabled = parseBoolWithDefault("ARCHIVE_ENABLED", cfg.Archive.Enabled)
	cfg.Archive.URI = valueOrDefault("ARCHIVE_URI", cfg.Archive.URI)
	cfg.Archive.Database = valueOrDefault("ARCHIVE_DATABASE", cfg.Archive.Database)
	cfg.Archive.Username = valueOrDefault("ARCHIVE_USERNAME", cfg.Archive.Username)
	cfg.Archive.Password = valueOrDefault("ARCHIVE_PASSWORD", cfg.Archive.Password)
	cfg.Archive.MaxConnections = parseIntWithDefault("ARCHIVE_MAX_CONNECTIONS", cfg.Archive.MaxConnections)

	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)

	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
