package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/law-makers/rclookup/internal/identity"
	"github.com/law-makers/rclookup/internal/ratelimit"
	"github.com/law-makers/rclookup/internal/reqctx"
	"github.com/law-makers/rclookup/pkg/models"
)

// BrowserOptions configures the headless browser strategy
type BrowserOptions struct {
	Target     Target
	Identities *identity.Pool
	Limiter    ratelimit.RateLimiter
	Timeout    time.Duration
	Pool       BrowserPoolOptions
	// Headers are sent with every navigation
	Headers http.Header
}

// Browser renders the search page in headless Chrome. Chrome is started
// on first use and kept until Close.
type Browser struct {
	target     Target
	identities *identity.Pool
	limiter    ratelimit.RateLimiter
	timeout    time.Duration
	poolOpts   BrowserPoolOptions
	headers    network.Headers

	mu   sync.Mutex
	pool *BrowserPool
}

// NewBrowser creates the browser strategy
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * DefaultTimeout
	}
	if opts.Identities == nil {
		opts.Identities = identity.NewPool(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	headers := network.Headers{"Referer": opts.Target.Referer()}
	for k, v := range opts.Headers {
		headers[k] = strings.Join(v, ", ")
	}
	return &Browser{
		headers:    headers,
		target:     opts.Target,
		identities: opts.Identities,
		limiter:    opts.Limiter,
		timeout:    opts.Timeout,
		poolOpts:   opts.Pool,
	}
}

// Name returns the strategy name
func (b *Browser) Name() string {
	return "browser"
}

func (b *Browser) browserPool() (*BrowserPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := NewBrowserPool(b.poolOpts)
	if err != nil {
		return nil, err
	}
	b.pool = pool
	return pool, nil
}

// Close stops Chrome if it was started
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool == nil {
		return nil
	}
	err := b.pool.Close()
	b.pool = nil
	return err
}

// Fetch renders the search page for q. Jar cookies are loaded into the tab
// before navigation and the tab's cookies are copied back afterwards.
func (b *Browser) Fetch(ctx context.Context, q models.PlateQuery, jar http.CookieJar) (*Response, error) {
	logger := reqctx.Logger(ctx)
	target := b.target.SearchURL(q)
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}

	if err := b.limiter.Wait(ctx, target); err != nil {
		return nil, err
	}

	pool, err := b.browserPool()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	bc, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(bc)

	tabCtx, cancel := context.WithTimeout(bc.Ctx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		statusMu sync.Mutex
		status   int64
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			statusMu.Lock()
			status = e.Response.Status
			statusMu.Unlock()
		}
	})

	var cookies []*http.Cookie
	if jar != nil {
		cookies = jar.Cookies(u)
	}
	agent := b.identities.Pick()

	var body string
	start := time.Now()
	err = chromedp.Run(tabCtx,
		network.Enable(),
		network.ClearBrowserCookies(),
		emulation.SetUserAgentOverride(agent).WithAcceptLanguage("en-US,en;q=0.5"),
		network.SetExtraHTTPHeaders(b.headers),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				if err := network.SetCookie(c.Name, c.Value).WithURL(target).Do(ctx); err != nil {
					return fmt.Errorf("set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
		chromedp.Navigate(target),
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if jar == nil {
				return nil
			}
			got, err := network.GetCookies().WithURLs([]string{target}).Do(ctx)
			if err != nil {
				return err
			}
			back := make([]*http.Cookie, 0, len(got))
			for _, c := range got {
				back = append(back, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
			}
			jar.SetCookies(u, back)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch of %s failed: %w", target, err)
	}

	statusMu.Lock()
	code := int(status)
	statusMu.Unlock()

	out := &Response{
		Status:   code,
		Body:     body,
		URL:      target,
		Strategy: b.Name(),
		Duration: time.Since(start),
	}

	logger.Debug().
		Str("url", target).
		Int("status", out.Status).
		Int("bytes", len(out.Body)).
		Dur("duration", out.Duration).
		Msg("Browser fetch completed")

	return out, nil
}
