package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/law-makers/rclookup/internal/extract"
)

// fileConfig mirrors the YAML layout of the config file. Pointer fields
// distinguish "not set" from zero values.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	JSONLog  *bool  `yaml:"json_log"`

	BaseURL    string `yaml:"base_url"`
	SearchPath string `yaml:"search_path"`

	Timeout          string   `yaml:"timeout"`
	WarmTimeout      string   `yaml:"warm_timeout"`
	UserAgents       []string `yaml:"user_agents"`
	Headers          []string `yaml:"headers"`
	Proxies          []string `yaml:"proxies"`
	CloudflareBypass *bool    `yaml:"cloudflare_bypass"`

	Retry struct {
		MaxAttempts int    `yaml:"max_attempts"`
		MinBackoff  string `yaml:"min_backoff"`
		MaxBackoff  string `yaml:"max_backoff"`
	} `yaml:"retry"`

	Detect struct {
		MinBodyLength int      `yaml:"min_body_length"`
		Markers       []string `yaml:"markers"`
		MinLabelTags  int      `yaml:"min_label_tags"`
	} `yaml:"detect"`

	Fields []extract.FieldSpec `yaml:"fields"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Browser struct {
		Enabled  *bool  `yaml:"enabled"`
		PoolSize int    `yaml:"pool_size"`
		Headless *bool  `yaml:"headless"`
		Timeout  string `yaml:"timeout"`
		Chrome   string `yaml:"chrome_path"`
	} `yaml:"browser"`

	Cache struct {
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
	} `yaml:"cache"`

	Session struct {
		Name    string `yaml:"name"`
		MaxAge  string `yaml:"max_age"`
		Persist *bool  `yaml:"persist"`
	} `yaml:"session"`

	Server struct {
		Addr              string `yaml:"addr"`
		KeepAliveURL      string `yaml:"keepalive_url"`
		KeepAliveSchedule string `yaml:"keepalive_schedule"`
	} `yaml:"server"`
}

// applyFile merges the YAML file at path into cfg. An empty path falls back
// to ~/.rclookup/config.yaml, which may be absent.
func applyFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, DefaultConfigFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := fc.apply(cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.Source = path
	return nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = v
		}
	}

	setStr(&cfg.LogLevel, fc.LogLevel)
	setBool(&cfg.JSONLog, fc.JSONLog)
	setStr(&cfg.BaseURL, fc.BaseURL)
	setStr(&cfg.SearchPath, fc.SearchPath)
	setList(&cfg.UserAgents, fc.UserAgents)
	setList(&cfg.Headers, fc.Headers)
	setList(&cfg.Proxies, fc.Proxies)
	setBool(&cfg.CloudflareBypass, fc.CloudflareBypass)
	setInt(&cfg.MaxAttempts, fc.Retry.MaxAttempts)
	setInt(&cfg.MinBodyLength, fc.Detect.MinBodyLength)
	setList(&cfg.Markers, fc.Detect.Markers)
	setInt(&cfg.MinLabelTags, fc.Detect.MinLabelTags)
	if len(fc.Fields) > 0 {
		cfg.Fields = fc.Fields
	}
	if fc.RateLimit.RPS != 0 {
		cfg.RateLimitRPS = fc.RateLimit.RPS
	}
	setInt(&cfg.RateLimitBurst, fc.RateLimit.Burst)
	setBool(&cfg.BrowserFallback, fc.Browser.Enabled)
	setInt(&cfg.BrowserPoolSize, fc.Browser.PoolSize)
	setBool(&cfg.BrowserHeadless, fc.Browser.Headless)
	setStr(&cfg.ChromePath, fc.Browser.Chrome)
	setInt(&cfg.CacheMaxEntries, fc.Cache.MaxEntries)
	setStr(&cfg.SessionName, fc.Session.Name)
	setBool(&cfg.PersistSession, fc.Session.Persist)
	setStr(&cfg.ServeAddr, fc.Server.Addr)
	setStr(&cfg.KeepAliveURL, fc.Server.KeepAliveURL)
	setStr(&cfg.KeepAliveSchedule, fc.Server.KeepAliveSchedule)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", fc.Timeout, &cfg.HTTPTimeout},
		{"warm_timeout", fc.WarmTimeout, &cfg.WarmTimeout},
		{"retry.min_backoff", fc.Retry.MinBackoff, &cfg.MinBackoff},
		{"retry.max_backoff", fc.Retry.MaxBackoff, &cfg.MaxBackoff},
		{"browser.timeout", fc.Browser.Timeout, &cfg.BrowserTimeout},
		{"cache.ttl", fc.Cache.TTL, &cfg.CacheTTL},
		{"session.max_age", fc.Session.MaxAge, &cfg.SessionMaxAge},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	return nil
}
