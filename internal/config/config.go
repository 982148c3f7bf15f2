package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LogLevel           logging.Level
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	MetricsEnabled     bool
	InternalJobToken   string

	ContestSources  []string
	RecentLookback  time.Duration
	WarmInterval    time.Duration
	WarmWorkers     int
	ClistUsername   string
	ClistAPIKey     string
	CacheBackend    string
	CacheTTL        time.Duration
	CacheMaxEntries int

	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	DBURL                   string
	DBDisablePreparedBinary bool

	SourceTimeout         time.Duration
	APITimeout            time.Duration
	ScrapeTimeout         time.Duration
	UpstreamMaxRetries    int
	UpstreamRateLimit     float64
	UpstreamRateBurst     int
	CircuitEnabled        bool
	CircuitFailureCount   int
	CircuitOpenTimeout    time.Duration
	CircuitHalfOpenMaxReq int

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// LoadDotEnv reads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the environment. Every invalid variable is reported in the
// returned error, not just the first.
func Load() (Config, error) {
	env := envReader{lookup: os.Getenv}

	appEnv := strings.ToLower(env.str("APP_ENV", EnvDev))
	switch appEnv {
	case EnvDev, EnvStage, EnvProd:
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", appEnv, EnvDev, EnvStage, EnvProd)
	}

	cfg := Config{AppEnv: appEnv}
	cfg.loadHTTP(&env)
	cfg.loadContests(&env)
	cfg.loadStorage(&env)
	cfg.loadUpstream(&env)
	cfg.loadTelemetry(&env)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadHTTP(env *envReader) {
	c.ServiceName = env.str("APP_SERVICE_NAME", "contest-feed-api")
	c.ServiceVersion = env.str("APP_SERVICE_VERSION", "dev")
	c.HTTPAddr = env.str("APP_HTTP_ADDR", ":8080")
	c.ReadTimeout = env.duration("APP_READ_TIMEOUT", 10*time.Second)
	c.WriteTimeout = env.duration("APP_WRITE_TIMEOUT", 45*time.Second)
	c.LogLevel = logging.ParseLevel(env.str("APP_LOG_LEVEL", "info"))
	c.SwaggerEnabled = env.boolean("SWAGGER_ENABLED", c.AppEnv != EnvProd)
	c.MetricsEnabled = env.boolean("METRICS_ENABLED", true)
	c.InternalJobToken = env.str("INTERNAL_JOB_TOKEN", "")
	c.CORSAllowedOrigins = splitCSV(env.str("CORS_ALLOWED_ORIGINS", "*"))
	env.check(len(c.CORSAllowedOrigins) > 0, "CORS_ALLOWED_ORIGINS cannot be empty")
}

func (c *Config) loadContests(env *envReader) {
	c.ContestSources = normalizeSources(splitCSV(env.str("CONTEST_SOURCES", "")))
	c.RecentLookback = env.duration("CONTEST_RECENT_LOOKBACK", 30*24*time.Hour)
	env.check(c.RecentLookback > 0, "CONTEST_RECENT_LOOKBACK must be > 0")
	c.WarmInterval = env.duration("CONTEST_WARM_INTERVAL", 0)
	env.check(c.WarmInterval >= 0, "CONTEST_WARM_INTERVAL must be >= 0")
	c.WarmWorkers = env.integer("CONTEST_WARM_WORKERS", 4)
	env.check(c.WarmWorkers >= 1, "CONTEST_WARM_WORKERS must be >= 1")
	c.ClistUsername = env.str("CLIST_USERNAME", "")
	c.ClistAPIKey = env.str("CLIST_API_KEY", "")
}

func (c *Config) loadStorage(env *envReader) {
	c.CacheBackend = strings.ToLower(env.str("CONTEST_CACHE_BACKEND", CacheBackendMemory))
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendPostgres:
	default:
		env.fail("invalid CONTEST_CACHE_BACKEND %q: valid values are %s, %s, %s",
			c.CacheBackend, CacheBackendMemory, CacheBackendRedis, CacheBackendPostgres)
	}
	c.CacheTTL = env.duration("CONTEST_CACHE_TTL", time.Hour)
	env.check(c.CacheTTL > 0, "CONTEST_CACHE_TTL must be > 0")
	c.CacheMaxEntries = env.integer("CONTEST_CACHE_MAX_ENTRIES", 1024)
	env.check(c.CacheMaxEntries >= 0, "CONTEST_CACHE_MAX_ENTRIES must be >= 0")

	c.RedisAddr = env.str("REDIS_ADDR", "localhost:6379")
	c.RedisPassword = env.str("REDIS_PASSWORD", "")
	c.RedisDB = env.integer("REDIS_DB", 0)

	c.DBURL = env.str("DB_URL", "")
	c.DBDisablePreparedBinary = env.boolean("DB_DISABLE_PREPARED_BINARY_RESULT", true)
	env.check(c.CacheBackend != CacheBackendPostgres || c.DBURL != "",
		"DB_URL is required when CONTEST_CACHE_BACKEND=postgres")
}

func (c *Config) loadUpstream(env *envReader) {
	c.SourceTimeout = env.duration("CONTEST_SOURCE_TIMEOUT", 30*time.Second)
	c.APITimeout = env.duration("CONTEST_API_TIMEOUT", 10*time.Second)
	c.ScrapeTimeout = env.duration("CONTEST_SCRAPE_TIMEOUT", 15*time.Second)
	env.check(c.SourceTimeout > 0 && c.APITimeout > 0 && c.ScrapeTimeout > 0,
		"CONTEST_SOURCE_TIMEOUT, CONTEST_API_TIMEOUT and CONTEST_SCRAPE_TIMEOUT must be > 0")

	c.UpstreamMaxRetries = env.integer("CONTEST_UPSTREAM_MAX_RETRIES", 0)
	env.check(c.UpstreamMaxRetries >= 0, "CONTEST_UPSTREAM_MAX_RETRIES must be >= 0")
	c.UpstreamRateLimit = env.float("CONTEST_UPSTREAM_RATE_LIMIT", 2)
	env.check(c.UpstreamRateLimit >= 0, "CONTEST_UPSTREAM_RATE_LIMIT must be >= 0")
	c.UpstreamRateBurst = env.integer("CONTEST_UPSTREAM_RATE_BURST", 4)
	env.check(c.UpstreamRateBurst >= 1, "CONTEST_UPSTREAM_RATE_BURST must be >= 1")

	c.CircuitEnabled = env.boolean("CONTEST_CIRCUIT_ENABLED", true)
	c.CircuitFailureCount = env.integer("CONTEST_CIRCUIT_FAILURE_COUNT", 5)
	env.check(c.CircuitFailureCount >= 1, "CONTEST_CIRCUIT_FAILURE_COUNT must be >= 1")
	c.CircuitOpenTimeout = env.duration("CONTEST_CIRCUIT_OPEN_TIMEOUT", time.Minute)
	env.check(c.CircuitOpenTimeout > 0, "CONTEST_CIRCUIT_OPEN_TIMEOUT must be > 0")
	c.CircuitHalfOpenMaxReq = env.integer("CONTEST_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	env.check(c.CircuitHalfOpenMaxReq >= 1, "CONTEST_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
}

func (c *Config) loadTelemetry(env *envReader) {
	c.PprofEnabled = env.boolean("PPROF_ENABLED", false)
	c.PprofAddr = env.str("PPROF_ADDR", ":6060")

	c.UptraceEnabled = env.boolean("UPTRACE_ENABLED", false)
	c.UptraceDSN = env.str("UPTRACE_DSN", "")
	if c.UptraceDSN == "" {
		c.UptraceDSN = uptraceDSNFromOTLPHeaders(env.str("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	env.check(!c.UptraceEnabled || c.UptraceDSN != "", "UPTRACE_DSN is required when UPTRACE_ENABLED=true")

	c.PyroscopeEnabled = env.boolean("PYROSCOPE_ENABLED", false)
	c.PyroscopeServerAddress = env.str("PYROSCOPE_SERVER_ADDRESS", "")
	c.PyroscopeAppName = env.str("PYROSCOPE_APP_NAME", c.ServiceName)
	c.PyroscopeAuthToken = env.str("PYROSCOPE_AUTH_TOKEN", "")
	c.PyroscopeBasicAuthUser = env.str("PYROSCOPE_BASIC_AUTH_USER", "")
	c.PyroscopeBasicAuthPassword = env.str("PYROSCOPE_BASIC_AUTH_PASSWORD", "")
	c.PyroscopeUploadRate = env.duration("PYROSCOPE_UPLOAD_RATE", 15*time.Second)
	env.check(c.PyroscopeUploadRate > 0, "PYROSCOPE_UPLOAD_RATE must be > 0")
	if c.PyroscopeEnabled {
		env.check(c.PyroscopeServerAddress != "", "PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
		env.check(c.PyroscopeAppName != "", "PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
}

// CacheDSN is DBURL with PostgresDSN applied.
func (c Config) CacheDSN() string {
	return PostgresDSN(c.DBURL, c.DBDisablePreparedBinary)
}

// PostgresDSN sets disable_prepared_binary_result for poolers that reject
// binary prepared results, unless the URL already chooses a value.
func PostgresDSN(raw string, disablePreparedBinary bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinary {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return raw
	}
	query := parsed.Query()
	if query.Has("disable_prepared_binary_result") {
		return raw
	}
	query.Set("disable_prepared_binary_result", "yes")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// envReader treats blank variables as unset and collects parse errors.
type envReader struct {
	lookup func(string) string
	errs   []error
}

func (r *envReader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.lookup(key)); v != "" {
		return v
	}
	return fallback
}

func (r *envReader) boolean(key string, fallback bool) bool {
	return parseOr(r, key, fallback, strconv.ParseBool)
}

func (r *envReader) integer(key string, fallback int) int {
	return parseOr(r, key, fallback, strconv.Atoi)
}

func (r *envReader) float(key string, fallback float64) float64 {
	return parseOr(r, key, fallback, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	return parseOr(r, key, fallback, time.ParseDuration)
}

func (r *envReader) check(ok bool, msg string) {
	if !ok {
		r.errs = append(r.errs, errors.New(msg))
	}
}

func (r *envReader) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

func parseOr[T any](r *envReader, key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(r.lookup(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		r.fail("parse %s: %w", key, err)
		return fallback
	}
	return v
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeSources(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.ToLower(item)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// uptraceDSNFromOTLPHeaders extracts uptrace-dsn from a header list such as
// `uptrace-dsn=https://token@api.uptrace.dev?grpc=4317,x-other=1`.
func uptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(item, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}
