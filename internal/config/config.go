package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                string
	HTTPPort           string
	CORSAllowedOrigins []string

	JWTIssuer       string
	JWTAudience     string
	JWTAccessSecret string

	UpstreamBaseURL    string
	UpstreamTimeout    time.Duration
	UpstreamAPIToken   string
	UpstreamHealthPath string

	ListingDefaultPageSize     int
	ListingMaxPageSize         int
	ListingSearchMinLength     int
	ListingStaleWait           time.Duration
	ListingFetchTimeout        time.Duration
	ListingCacheMaxEntries     int
	ListingCacheIdleTTL        time.Duration
	ListingCacheTTL            time.Duration
	ListingCacheRedisEnabled   bool
	ListingCacheRedisPrefix    string
	ListingInvalidationChannel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimitPerMin     int
	RefreshRateLimitPerMin int

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		JWTIssuer:          getEnv("JWT_ISSUER", "admin-listing-engine"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "admin-dashboard"),
		JWTAccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),

		UpstreamBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL")), "/"),
		UpstreamAPIToken:   os.Getenv("UPSTREAM_API_TOKEN"),
		UpstreamHealthPath: getEnv("UPSTREAM_HEALTH_PATH", "/health"),

		ListingDefaultPageSize:     getEnvInt("LISTING_DEFAULT_PAGE_SIZE", 10),
		ListingMaxPageSize:         getEnvInt("LISTING_MAX_PAGE_SIZE", 100),
		ListingSearchMinLength:     getEnvInt("LISTING_SEARCH_MIN_LENGTH", 3),
		ListingCacheMaxEntries:     getEnvInt("LISTING_CACHE_MAX_ENTRIES", 2048),
		ListingCacheRedisEnabled:   getEnvBool("LISTING_CACHE_REDIS_ENABLED", false),
		ListingCacheRedisPrefix:    getEnv("LISTING_CACHE_REDIS_PREFIX", "listing_cache"),
		ListingInvalidationChannel: getEnv("LISTING_INVALIDATION_CHANNEL", "listing:invalidate"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		APIRateLimitPerMin:     getEnvInt("API_RATE_LIMIT_PER_MIN", 600),
		RefreshRateLimitPerMin: getEnvInt("REFRESH_RATE_LIMIT_PER_MIN", 30),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "admin-listing-engine"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"UPSTREAM_TIMEOUT", "8s", &cfg.UpstreamTimeout},
		{"LISTING_STALE_WAIT", "150ms", &cfg.ListingStaleWait},
		{"LISTING_FETCH_TIMEOUT", "10s", &cfg.ListingFetchTimeout},
		{"LISTING_CACHE_IDLE_TTL", "10m", &cfg.ListingCacheIdleTTL},
		{"LISTING_CACHE_TTL", "30s", &cfg.ListingCacheTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "2s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if c.UpstreamBaseURL == "" {
		errs = append(errs, "UPSTREAM_BASE_URL is required")
	} else if u, err := url.Parse(c.UpstreamBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "UPSTREAM_BASE_URL must be an absolute URL")
	} else if !isLocalLikeEnv(c.Env) && u.Scheme != "https" {
		errs = append(errs, "UPSTREAM_BASE_URL must use https outside local environments")
	}
	if c.UpstreamTimeout <= 0 || c.UpstreamTimeout > time.Minute {
		errs = append(errs, "UPSTREAM_TIMEOUT must be between 1ms and 1m")
	}
	if c.ListingDefaultPageSize <= 0 {
		errs = append(errs, "LISTING_DEFAULT_PAGE_SIZE must be > 0")
	}
	if c.ListingMaxPageSize < c.ListingDefaultPageSize {
		errs = append(errs, "LISTING_MAX_PAGE_SIZE must be >= LISTING_DEFAULT_PAGE_SIZE")
	}
	if c.ListingSearchMinLength < 1 {
		errs = append(errs, "LISTING_SEARCH_MIN_LENGTH must be >= 1")
	}
	if c.ListingStaleWait < 0 {
		errs = append(errs, "LISTING_STALE_WAIT must be >= 0")
	}
	if c.ListingFetchTimeout <= 0 {
		errs = append(errs, "LISTING_FETCH_TIMEOUT must be > 0")
	}
	if c.ListingFetchTimeout > 0 && c.UpstreamTimeout > c.ListingFetchTimeout {
		errs = append(errs, "UPSTREAM_TIMEOUT must be <= LISTING_FETCH_TIMEOUT")
	}
	if c.ListingCacheMaxEntries <= 0 {
		errs = append(errs, "LISTING_CACHE_MAX_ENTRIES must be > 0")
	}
	if c.ListingCacheIdleTTL <= 0 {
		errs = append(errs, "LISTING_CACHE_IDLE_TTL must be > 0")
	}
	if c.ListingCacheTTL < 0 {
		errs = append(errs, "LISTING_CACHE_TTL must be >= 0")
	}
	if c.ListingCacheRedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, "REDIS_ADDR is required when LISTING_CACHE_REDIS_ENABLED=true")
	}
	if c.ListingCacheRedisEnabled && strings.TrimSpace(c.ListingInvalidationChannel) == "" {
		errs = append(errs, "LISTING_INVALIDATION_CHANNEL is required when LISTING_CACHE_REDIS_ENABLED=true")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RefreshRateLimitPerMin <= 0 {
		errs = append(errs, "REFRESH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
