package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel           = "info"
	DefaultJSONLog            = false
	DefaultBaseURL            = "https://vahanx.in/"
	DefaultSearchPath         = "/rc-search/{plate}"
	DefaultHTTPTimeout        = 15 * time.Second
	DefaultWarmTimeout        = 8 * time.Second
	DefaultMaxAttempts        = 3
	DefaultMinBackoff         = 2 * time.Second
	DefaultMaxBackoff         = 4 * time.Second
	DefaultMinBodyLength      = 5000
	DefaultRateLimitRPS       = 1.0
	DefaultRateLimitBurst     = 2
	DefaultCacheTTL           = 30 * time.Minute
	DefaultCacheMaxEntries    = 1024
	DefaultBrowserFallback    = false
	DefaultBrowserPoolSize    = 1
	DefaultMaxBrowserPoolSize = 5
	DefaultBrowserHeadless    = true
	DefaultBrowserTimeout     = 30 * time.Second
	DefaultCloudflareBypass   = true
	DefaultSessionName        = "default"
	DefaultPersistSession     = false
	DefaultServeAddr          = ":8000"
	DefaultKeepAliveSchedule  = "@every 10m"
	DefaultBatchConcurrency   = 2

	// EnvPrefix prefixes every environment override
	EnvPrefix = "RCLOOKUP_"
	// DefaultConfigFile is looked up under the home directory when --config is not given
	DefaultConfigFile = ".rclookup/config.yaml"
)
