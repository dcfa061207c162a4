// Package session owns the shared cookie context obtained by warming up
// against the upstream home page.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/law-makers/rclookup/internal/reqctx"
)

// DefaultWarmTimeout bounds a single warm-up request
const DefaultWarmTimeout = 8 * time.Second

// Info is a point-in-time view of the session
type Info struct {
	Valid    bool      `json:"valid"`
	Degraded bool      `json:"degraded"`
	WarmedAt time.Time `json:"warmed_at,omitempty"`
	Cookies  int       `json:"cookies"`
	Error    string    `json:"error,omitempty"`
}

// Options configures a Store
type Options struct {
	// BaseURL is the page requested on warm-up
	BaseURL string
	// Headers are sent on warm-up, normally built from the default identity
	Headers http.Header
	// WarmTimeout bounds the warm-up request (default 8s)
	WarmTimeout time.Duration
	// MaxAge expires a warm session; zero keeps it until invalidated
	MaxAge time.Duration
	// Persister, when set, receives a cookie snapshot after each clean warm-up
	Persister Persister
	// Name keys the persisted snapshot
	Name string
	// Client overrides the warm-up HTTP client
	Client *resty.Client
}

// Store is a concurrency-safe cookie jar with a validity flag.
// At most one warm-up runs at a time; concurrent Ensure callers share it.
type Store struct {
	opts    Options
	baseURL *url.URL
	client  *resty.Client

	mu       sync.RWMutex
	jar      http.CookieJar
	valid    bool
	degraded bool
	warmedAt time.Time
	lastErr  error

	group   singleflight.Group
	warmups atomic.Int64
	now     func() time.Time
}

// NewStore creates an empty, invalid session
func NewStore(opts Options) (*Store, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if opts.WarmTimeout <= 0 {
		opts.WarmTimeout = DefaultWarmTimeout
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	s := &Store{
		opts:    opts,
		baseURL: base,
		jar:     newJar(),
		now:     time.Now,
	}

	client := opts.Client
	if client == nil {
		client = resty.New()
	}
	// Redirect hops on warm-up land in the store through the jar
	client.SetCookieJar(s)
	s.client = client

	return s, nil
}

func newJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// SetCookies implements http.CookieJar
func (s *Store) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar
func (s *Store) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	return jar.Cookies(u)
}

// BaseURL returns the warm-up URL
func (s *Store) BaseURL() *url.URL {
	return s.baseURL
}

// Ensure returns a valid session, warming up first when needed.
// Warm-up failures never reach the caller; the session comes back degraded.
// If ctx ends while waiting on a warm-up, the current state is returned at once.
func (s *Store) Ensure(ctx context.Context) Info {
	if info, ok := s.current(); ok {
		return info
	}

	ch := s.group.DoChan("warm", func() (interface{}, error) {
		if info, ok := s.current(); ok {
			return info, nil
		}
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WarmTimeout)
		defer cancel()
		return s.warm(wctx), nil
	})

	select {
	case <-ctx.Done():
		return s.Info()
	case res := <-ch:
		return res.Val.(Info)
	}
}

// current reports the session when it is valid and not expired
func (s *Store) current() (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid {
		return Info{}, false
	}
	if s.opts.MaxAge > 0 && s.now().Sub(s.warmedAt) > s.opts.MaxAge {
		return Info{}, false
	}
	return s.infoLocked(), true
}

func (s *Store) warm(ctx context.Context) Info {
	logger := reqctx.Logger(ctx)
	n := s.warmups.Add(1)
	s.reset()

	start := s.now()
	req := s.client.R().SetContext(ctx)
	for k := range s.opts.Headers {
		req.SetHeader(k, s.opts.Headers.Get(k))
	}

	resp, err := req.Get(s.baseURL.String())
	if err == nil && resp.StatusCode() >= http.StatusBadRequest {
		err = fmt.Errorf("warm-up returned status %d", resp.StatusCode())
	}

	s.mu.Lock()
	s.valid = true
	s.warmedAt = s.now()
	s.degraded = err != nil
	s.lastErr = err
	info := s.infoLocked()
	s.mu.Unlock()

	if err != nil {
		logger.Warn().
			Err(err).
			Str("url", s.baseURL.String()).
			Int64("warmup", n).
			Msg("Session warm-up failed, continuing without cookies")
		return info
	}

	logger.Debug().
		Int("cookies", info.Cookies).
		Int64("warmup", n).
		Dur("duration", s.now().Sub(start)).
		Msg("Session warmed")

	if s.opts.Persister != nil {
		if perr := s.opts.Persister.Save(s.snapshot()); perr != nil {
			logger.Warn().Err(perr).Str("name", s.opts.Name).Msg("Failed to persist session")
		}
	}
	return info
}

// reset drops cookies and validity
func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar = newJar()
	s.valid = false
	s.degraded = false
	s.lastErr = nil
	s.warmedAt = time.Time{}
}

// Invalidate forces the next Ensure to warm up again
func (s *Store) Invalidate(ctx context.Context) {
	s.reset()
	logger := reqctx.Logger(ctx)
	logger.Debug().Msg("Session invalidated")
}

// Info returns the current session state
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked()
}

func (s *Store) infoLocked() Info {
	info := Info{
		Valid:    s.valid,
		Degraded: s.degraded,
		WarmedAt: s.warmedAt,
		Cookies:  len(s.jar.Cookies(s.baseURL)),
	}
	if s.lastErr != nil {
		info.Error = s.lastErr.Error()
	}
	return info
}

// Warmups returns how many warm-up requests have been issued
func (s *Store) Warmups() int64 {
	return s.warmups.Load()
}

func (s *Store) snapshot() *Snapshot {
	snap := &Snapshot{
		Name:      s.opts.Name,
		URL:       s.baseURL.String(),
		CreatedAt: s.Info().WarmedAt,
	}
	for _, c := range s.Cookies(s.baseURL) {
		snap.Cookies = append(snap.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	if s.opts.MaxAge > 0 {
		snap.ExpiresAt = snap.CreatedAt.Add(s.opts.MaxAge)
	}
	return snap
}

// Restore seeds the store from the persisted snapshot, if any.
// A restored session counts as warm, so no warm-up request is made until
// it is invalidated or expires.
func (s *Store) Restore() error {
	if s.opts.Persister == nil {
		return nil
	}
	snap, err := s.opts.Persister.Load(s.opts.Name)
	if err != nil {
		return err
	}
	if snap.URL != s.baseURL.String() {
		return fmt.Errorf("snapshot %q was taken for %s", snap.Name, snap.URL)
	}

	cookies := make([]*http.Cookie, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}

	s.mu.Lock()
	s.jar = newJar()
	s.jar.SetCookies(s.baseURL, cookies)
	s.valid = true
	s.degraded = false
	s.lastErr = nil
	s.warmedAt = snap.CreatedAt
	s.mu.Unlock()

	log.Debug().Str("name", snap.Name).Int("cookies", len(cookies)).Msg("Session restored")
	return nil
}

// Forget invalidates the session and deletes its persisted snapshot
func (s *Store) Forget(ctx context.Context) error {
	s.Invalidate(ctx)
	if s.opts.Persister == nil {
		return nil
	}
	return s.opts.Persister.Delete(s.opts.Name)
}
