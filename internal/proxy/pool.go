package proxy

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultBenchTime is how long a failed proxy is skipped
const DefaultBenchTime = 5 * time.Minute

// Pool rotates through upstream proxies, skipping ones that failed recently
type Pool struct {
	proxies []*url.URL
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
	bench   time.Duration
	now     func() time.Time
}

// NewPool parses raw proxy URLs; unparsable entries are returned as an error
func NewPool(raw []string) (*Pool, error) {
	p := &Pool{
		failed: make(map[string]time.Time),
		bench:  DefaultBenchTime,
		now:    time.Now,
	}
	for _, r := range raw {
		if r == "" {
			continue
		}
		u, err := url.Parse(r)
		if err != nil || u.Host == "" {
			return nil, &url.Error{Op: "parse", URL: r, Err: errInvalidProxy}
		}
		p.proxies = append(p.proxies, u)
	}
	return p, nil
}

type proxyError string

func (e proxyError) Error() string { return string(e) }

const errInvalidProxy = proxyError("proxy URL must include scheme and host")

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Next returns the next healthy proxy, or nil when the pool is empty.
// When every proxy is benched the next one in rotation is returned anyway.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	start := p.index
	for {
		candidate := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		key := candidate.String()
		if failTime, ok := p.failed[key]; ok {
			if p.now().Sub(failTime) < p.bench {
				if p.index == start {
					return candidate
				}
				continue
			}
			delete(p.failed, key)
		}
		return candidate
	}
}

// MarkFailed benches a proxy
func (p *Pool) MarkFailed(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[u.String()] = p.now()
}

// MarkHealthy clears the failure status of a proxy
func (p *Pool) MarkHealthy(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, u.String())
}

type ctxKey struct{}

// WithProxy pins the proxy a request made with ctx must use
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the proxy pinned by WithProxy
func FromContext(ctx context.Context) *url.URL {
	u, _ := ctx.Value(ctxKey{}).(*url.URL)
	return u
}

// TransportProxy is an http.Transport.Proxy func that honours WithProxy
// and otherwise falls back to the environment
func TransportProxy(req *http.Request) (*url.URL, error) {
	if u := FromContext(req.Context()); u != nil {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}
