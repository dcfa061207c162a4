package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/detect"
	"github.com/law-makers/rclookup/internal/extract"
	"github.com/law-makers/rclookup/internal/identity"
	"github.com/law-makers/rclookup/internal/retry"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Upstream
	BaseURL    string
	SearchPath string

	// HTTP
	HTTPTimeout      time.Duration
	WarmTimeout      time.Duration
	UserAgents       []string
	Proxies          []string
	CloudflareBypass bool
	// Headers are extra "Key: Value" lines sent on every upstream request
	Headers []string

	// Retry
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration

	// Block detection
	MinBodyLength int
	Markers       []string
	MinLabelTags  int

	// Extraction
	Fields []extract.FieldSpec

	// Rate Limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Browser fallback
	BrowserFallback bool
	BrowserPoolSize int
	BrowserHeadless bool
	BrowserTimeout  time.Duration
	ChromePath      string

	// Caching
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Session
	SessionName    string
	SessionMaxAge  time.Duration
	PersistSession bool

	// Server
	ServeAddr         string
	KeepAliveURL      string
	KeepAliveSchedule string

	// Source is the config file that was applied, if any
	Source string
}

// Defaults returns a Config populated with the built-in defaults
func Defaults() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		BaseURL:           DefaultBaseURL,
		SearchPath:        DefaultSearchPath,
		HTTPTimeout:       DefaultHTTPTimeout,
		WarmTimeout:       DefaultWarmTimeout,
		UserAgents:        append([]string(nil), identity.DefaultAgents...),
		CloudflareBypass:  DefaultCloudflareBypass,
		MaxAttempts:       DefaultMaxAttempts,
		MinBackoff:        DefaultMinBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		MinBodyLength:     DefaultMinBodyLength,
		Markers:           append([]string(nil), detect.DefaultMarkers...),
		Fields:            extract.Defaults(),
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		BrowserFallback:   DefaultBrowserFallback,
		BrowserPoolSize:   DefaultBrowserPoolSize,
		BrowserHeadless:   DefaultBrowserHeadless,
		BrowserTimeout:    DefaultBrowserTimeout,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxEntries:   DefaultCacheMaxEntries,
		SessionName:       DefaultSessionName,
		PersistSession:    DefaultPersistSession,
		ServeAddr:         DefaultServeAddr,
		KeepAliveSchedule: DefaultKeepAliveSchedule,
	}
}

// Load builds a Config by layering defaults, an optional YAML file,
// RCLOOKUP_* environment variables and finally CLI flags.
// Pass the executing *cobra.Command so explicitly set flags win.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	path := ""
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil {
			path = f.Value.String()
		}
	}
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// RetryPolicy returns the configured retry policy
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		MinBackoff:  c.MinBackoff,
		MaxBackoff:  c.MaxBackoff,
	}
}

// ExtraHeaders returns the parsed Headers lines; Load has already validated them
func (c *Config) ExtraHeaders() http.Header {
	h, _ := identity.ParseHeaders(c.Headers)
	return h
}

// DetectRules returns the configured block heuristics
func (c *Config) DetectRules() detect.Rules {
	return detect.Rules{
		MinBodyLength: c.MinBodyLength,
		Markers:       c.Markers,
		MinLabelTags:  c.MinLabelTags,
	}
}

func applyEnv(cfg *Config) error {
	var err error
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	list := func(key, sep string, dst *[]string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = splitList(v, sep)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + key); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	flag("JSON", &cfg.JSONLog)
	str("BASE_URL", &cfg.BaseURL)
	str("SEARCH_PATH", &cfg.SearchPath)
	dur("TIMEOUT", &cfg.HTTPTimeout)
	dur("WARM_TIMEOUT", &cfg.WarmTimeout)
	list("USER_AGENTS", "|", &cfg.UserAgents)
	list("PROXY", ",", &cfg.Proxies)
	list("HEADERS", "|", &cfg.Headers)
	flag("CLOUDFLARE_BYPASS", &cfg.CloudflareBypass)
	num("MAX_ATTEMPTS", &cfg.MaxAttempts)
	dur("MIN_BACKOFF", &cfg.MinBackoff)
	dur("MAX_BACKOFF", &cfg.MaxBackoff)
	num("MIN_BODY_LENGTH", &cfg.MinBodyLength)
	flag("BROWSER", &cfg.BrowserFallback)
	str("CHROME_PATH", &cfg.ChromePath)
	dur("CACHE_TTL", &cfg.CacheTTL)
	str("SESSION", &cfg.SessionName)
	dur("SESSION_MAX_AGE", &cfg.SessionMaxAge)
	flag("PERSIST_SESSION", &cfg.PersistSession)
	str("ADDR", &cfg.ServeAddr)
	str("KEEPALIVE_URL", &cfg.KeepAliveURL)

	if v := os.Getenv(EnvPrefix + "RATE"); v != "" && err == nil {
		rps, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("%sRATE: %w", EnvPrefix, perr)
		}
		cfg.RateLimitRPS = rps
	}

	// Hosting platforms hand the port over in PORT
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"ADDR") == "" {
		cfg.ServeAddr = ":" + v
	}

	return err
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
