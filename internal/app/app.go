// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/rclookup/internal/cache"
	"github.com/law-makers/rclookup/internal/config"
	"github.com/law-makers/rclookup/internal/fetcher"
	"github.com/law-makers/rclookup/internal/identity"
	"github.com/law-makers/rclookup/internal/proxy"
	"github.com/law-makers/rclookup/internal/ratelimit"
	"github.com/law-makers/rclookup/internal/resolver"
	"github.com/law-makers/rclookup/internal/retry"
	"github.com/law-makers/rclookup/internal/session"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Identities  *identity.Pool
	Session     *session.Store
	Persister   session.Persister
	Cache       *cache.MemoryCache
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Pool
	Target      fetcher.Target
	HTTP        *fetcher.HTTP
	Browser     *fetcher.Browser
	Resolver    *resolver.Resolver
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Builds the identity pool, rate limiter and proxy rotation
//   - Creates the session store, restoring a persisted snapshot when enabled
//   - Creates the HTTP fetch strategy and, when enabled, the browser strategy
//   - Creates the record cache and the resolver tying everything together
//
// No network request is made here; the session warms up on first lookup.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := log.With().Str("component", "app").Logger()

	target, err := fetcher.NewTarget(cfg.BaseURL, cfg.SearchPath)
	if err != nil {
		return nil, err
	}

	identities := identity.NewPool(cfg.UserAgents)

	proxies, err := proxy.NewPool(cfg.Proxies)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy list: %w", err)
	}

	limiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Int("proxies", proxies.Len()).
		Int("user_agents", identities.Len()).
		Msg("Transport initialized")

	var persister session.Persister
	if cfg.PersistSession {
		persister = session.NewKeyringPersister("")
	}

	store, err := session.NewStore(session.Options{
		BaseURL:     cfg.BaseURL,
		Headers:     identity.WithExtra(identity.BrowserHeaders(identities.Default(), ""), cfg.ExtraHeaders()),
		WarmTimeout: cfg.WarmTimeout,
		MaxAge:      cfg.SessionMaxAge,
		Persister:   persister,
		Name:        cfg.SessionName,
	})
	if err != nil {
		return nil, err
	}
	if persister != nil {
		if err := store.Restore(); err != nil {
			logger.Debug().Err(err).Str("session", cfg.SessionName).Msg("No session snapshot restored")
		}
	}

	httpFetcher := fetcher.NewHTTP(fetcher.HTTPOptions{
		Target:     target,
		Identities: identities,
		Limiter:    limiter,
		Proxies:    proxies,
		Timeout:    cfg.HTTPTimeout,
		Bypass:     cfg.CloudflareBypass,
		Headers:    cfg.ExtraHeaders(),
	})
	strategies := []fetcher.Fetcher{httpFetcher}

	var browser *fetcher.Browser
	if cfg.BrowserFallback {
		// Chrome is started lazily, only once a lookup escalates
		browser = fetcher.NewBrowser(fetcher.BrowserOptions{
			Target:     target,
			Identities: identities,
			Limiter:    limiter,
			Timeout:    cfg.BrowserTimeout,
			Headers:    cfg.ExtraHeaders(),
			Pool: fetcher.BrowserPoolOptions{
				Size:     cfg.BrowserPoolSize,
				Headless: cfg.BrowserHeadless,
				Proxy:    firstOrEmpty(cfg.Proxies),
				ExecPath: cfg.ChromePath,
			},
		})
		strategies = append(strategies, browser)
	}

	memCache := cache.NewMemoryCache(cfg.CacheMaxEntries)

	res, err := resolver.New(resolver.Options{
		Session:    store,
		Strategies: strategies,
		Rules:      cfg.DetectRules(),
		Fields:     cfg.Fields,
		Policy:     cfg.RetryPolicy(),
		Jitter:     retry.NewJitter(),
		Cache:      memCache,
		CacheTTL:   cfg.CacheTTL,
	})
	if err != nil {
		memCache.Close()
		return nil, err
	}

	logger.Debug().
		Str("base_url", cfg.BaseURL).
		Int("strategies", len(strategies)).
		Int("fields", len(cfg.Fields)).
		Msg("Application initialized")

	return &Application{
		Config:      cfg,
		Logger:      &logger,
		Identities:  identities,
		Session:     store,
		Persister:   persister,
		Cache:       memCache,
		RateLimiter: limiter,
		Proxies:     proxies,
		Target:      target,
		HTTP:        httpFetcher,
		Browser:     browser,
		Resolver:    res,
		startTime:   time.Now(),
	}, nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	if a.Cache != nil {
		a.Cache.Close()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
