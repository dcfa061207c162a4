package config

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("json", false, "Write logs as JSON lines to stderr")
	pf.String("config", "", "Path to configuration file (default ~/"+DefaultConfigFile+")")
	pf.String("base-url", DefaultBaseURL, "Upstream site root")
	pf.StringSlice("proxy", nil, "HTTP/SOCKS5 proxy, repeat or comma-separate to rotate")
	pf.Duration("timeout", DefaultHTTPTimeout, "Timeout for a single fetch")
	pf.StringArray("user-agent", nil, "User agent to rotate through, repeatable")
	pf.StringArrayP("header", "H", nil, "Extra request header (e.g., -H \"Accept-Language: hi-IN\")")
	pf.Int("max-attempts", DefaultMaxAttempts, "Fetch attempts per lookup")
	pf.Float64("rate", DefaultRateLimitRPS, "Maximum requests per second to the upstream")
	pf.Bool("browser", DefaultBrowserFallback, "Escalate to headless Chrome when the plain fetch is blocked")
	pf.Bool("cloudflare-bypass", DefaultCloudflareBypass, "Use a browser-shaped TLS fingerprint")
	pf.String("session", DefaultSessionName, "Name of the persisted session snapshot")
	pf.Bool("persist-session", DefaultPersistSession, "Save and restore session cookies between runs")
	pf.Duration("cache-ttl", DefaultCacheTTL, "How long successful lookups are cached")
}

// applyFlags copies explicitly set flags onto cfg
func applyFlags(cfg *Config, cmd *cobra.Command) error {
	fs := cmd.Flags()
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	set := func(name string, apply func() error) {
		if err == nil && changed(name) {
			if aerr := apply(); aerr != nil {
				err = fmt.Errorf("--%s: %w", name, aerr)
			}
		}
	}

	set("verbose", func() error {
		if v, e := fs.GetBool("verbose"); e != nil || !v {
			return e
		}
		cfg.LogLevel = "debug"
		return nil
	})
	set("quiet", func() error {
		if v, e := fs.GetBool("quiet"); e != nil || !v {
			return e
		}
		cfg.LogLevel = "error"
		return nil
	})
	set("json", func() (e error) { cfg.JSONLog, e = fs.GetBool("json"); return })
	set("base-url", func() (e error) { cfg.BaseURL, e = fs.GetString("base-url"); return })
	set("proxy", func() (e error) { cfg.Proxies, e = fs.GetStringSlice("proxy"); return })
	set("timeout", func() (e error) { cfg.HTTPTimeout, e = fs.GetDuration("timeout"); return })
	set("user-agent", func() (e error) { cfg.UserAgents, e = fs.GetStringArray("user-agent"); return })
	set("header", func() (e error) { cfg.Headers, e = fs.GetStringArray("header"); return })
	set("max-attempts", func() (e error) { cfg.MaxAttempts, e = fs.GetInt("max-attempts"); return })
	set("rate", func() (e error) { cfg.RateLimitRPS, e = fs.GetFloat64("rate"); return })
	set("browser", func() (e error) { cfg.BrowserFallback, e = fs.GetBool("browser"); return })
	set("cloudflare-bypass", func() (e error) { cfg.CloudflareBypass, e = fs.GetBool("cloudflare-bypass"); return })
	set("session", func() (e error) { cfg.SessionName, e = fs.GetString("session"); return })
	set("persist-session", func() (e error) { cfg.PersistSession, e = fs.GetBool("persist-session"); return })
	set("cache-ttl", func() (e error) { cfg.CacheTTL, e = fs.GetDuration("cache-ttl"); return })
	set("addr", func() (e error) { cfg.ServeAddr, e = fs.GetString("addr"); return })
	set("keepalive-url", func() (e error) { cfg.KeepAliveURL, e = fs.GetString("keepalive-url"); return })

	return err
}
