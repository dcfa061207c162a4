package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/law-makers/rclookup/internal/extract"
	"github.com/law-makers/rclookup/internal/identity"
)

func validate(c *Config) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q must be absolute", c.BaseURL)
	}
	if !strings.Contains(c.SearchPath, "{plate}") {
		return fmt.Errorf("search path %q must contain {plate}", c.SearchPath)
	}
	if c.HTTPTimeout <= 0 || c.WarmTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return err
	}
	if c.MinBodyLength < 0 {
		return fmt.Errorf("min body length must be >= 0")
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}
	for _, p := range c.Proxies {
		if pu, err := url.Parse(p); err != nil || pu.Host == "" {
			return fmt.Errorf("invalid proxy %q", p)
		}
	}
	if _, err := identity.ParseHeaders(c.Headers); err != nil {
		return err
	}
	if err := extract.Validate(c.Fields); err != nil {
		return err
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be > 0 with burst >= 1")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be > 0")
	}
	if c.SessionName == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if c.KeepAliveURL != "" {
		if _, err := cron.ParseStandard(c.KeepAliveSchedule); err != nil {
			return fmt.Errorf("keep-alive schedule %q: %w", c.KeepAliveSchedule, err)
		}
	}
	return nil
}
