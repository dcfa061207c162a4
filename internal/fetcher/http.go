package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/law-makers/rclookup/internal/identity"
	"github.com/law-makers/rclookup/internal/proxy"
	"github.com/law-makers/rclookup/internal/ratelimit"
	"github.com/law-makers/rclookup/internal/reqctx"
	"github.com/law-makers/rclookup/pkg/models"
)

// HTTPOptions configures the plain HTTP strategy
type HTTPOptions struct {
	Target     Target
	Identities *identity.Pool
	Limiter    ratelimit.RateLimiter
	Proxies    *proxy.Pool
	Timeout    time.Duration
	// Transport overrides NewTransport(false); used by tests
	Transport http.RoundTripper
	// Bypass enables the browser-shaped TLS transport
	Bypass bool
	// Headers override the generated browser headers
	Headers http.Header
}

// HTTP fetches the search page with a plain HTTP client
type HTTP struct {
	target     Target
	identities *identity.Pool
	proxies    *proxy.Pool
	headers    http.Header
	client     *resty.Client
}

// NewHTTP creates the HTTP strategy
func NewHTTP(opts HTTPOptions) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Identities == nil {
		opts.Identities = identity.NewPool(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewTransport(opts.Bypass)
	}

	client := resty.New()
	client.SetTransport(transport)
	client.SetTimeout(opts.Timeout)
	// Cookies come from the session store on every call; redirect hops
	// read and write the same jar through the request context
	client.SetCookieJar(nil)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(DefaultMaxRedirects), jarRedirectPolicy())
	client.SetRetryCount(0)
	client.SetLogger(newRestyLogger("fetcher"))

	limiter := opts.Limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context(), req.URL)
	})

	return &HTTP{
		target:     opts.Target,
		identities: opts.Identities,
		proxies:    opts.Proxies,
		headers:    opts.Headers,
		client:     client,
	}
}

// Name returns the strategy name
func (h *HTTP) Name() string {
	return "http"
}

// Fetch performs one GET of the search page for q
func (h *HTTP) Fetch(ctx context.Context, q models.PlateQuery, jar http.CookieJar) (*Response, error) {
	logger := reqctx.Logger(ctx)
	target := h.target.SearchURL(q)
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}

	var px *url.URL
	if h.proxies != nil && h.proxies.Len() > 0 {
		px = h.proxies.Next()
		ctx = proxy.WithProxy(ctx, px)
	}

	agent := h.identities.Pick()
	if jar != nil {
		ctx = context.WithValue(ctx, jarKey{}, jar)
	}
	req := h.client.R().
		SetContext(ctx).
		SetHeaderMultiValues(identity.WithExtra(identity.BrowserHeaders(agent, h.target.Referer()), h.headers))
	if jar != nil {
		req.SetCookies(jar.Cookies(u))
	}

	logger.Debug().
		Str("url", target).
		Str("strategy", h.Name()).
		Str("user_agent", agent).
		Msg("Starting fetch")

	start := time.Now()
	resp, err := req.Get(target)
	if err != nil {
		if px != nil {
			h.proxies.MarkFailed(px)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	if px != nil {
		h.proxies.MarkHealthy(px)
	}

	if jar != nil {
		final := u
		if raw := resp.RawResponse; raw != nil && raw.Request != nil {
			final = raw.Request.URL
		}
		if cookies := resp.Cookies(); len(cookies) > 0 {
			jar.SetCookies(final, cookies)
		}
	}

	out := &Response{
		Status:   resp.StatusCode(),
		Body:     resp.String(),
		URL:      target,
		Strategy: h.Name(),
		Duration: time.Since(start),
	}

	logger.Debug().
		Str("url", target).
		Int("status", out.Status).
		Int("bytes", len(out.Body)).
		Dur("duration", out.Duration).
		Msg("Fetch completed")

	return out, nil
}

// DefaultMaxRedirects bounds redirect hops on a single fetch
const DefaultMaxRedirects = 10

type jarKey struct{}

// jarRedirectPolicy stores cookies set by each redirect response in the
// request's jar and sends the jar's cookies on the next hop
func jarRedirectPolicy() resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		jar, ok := req.Context().Value(jarKey{}).(http.CookieJar)
		if !ok {
			return nil
		}
		if prev := req.Response; prev != nil && prev.Request != nil {
			if cookies := prev.Cookies(); len(cookies) > 0 {
				jar.SetCookies(prev.Request.URL, cookies)
			}
		}
		req.Header.Del("Cookie")
		for _, c := range jar.Cookies(req.URL) {
			req.AddCookie(c)
		}
		return nil
	})
}
