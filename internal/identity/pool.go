// Package identity holds the rotating browser identities used for requests.
package identity

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
)

// DefaultAgents is the built-in set of desktop and mobile browser user agents
var DefaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

// Pool is a fixed set of user agent strings with a uniform random selector.
// It is safe for concurrent use.
type Pool struct {
	agents []string
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewPool creates a Pool. An empty list falls back to DefaultAgents.
func NewPool(agents []string) *Pool {
	return NewPoolWithRand(agents, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewPoolWithRand creates a Pool drawing from the given source
func NewPoolWithRand(agents []string, rng *rand.Rand) *Pool {
	clean := make([]string, 0, len(agents))
	for _, a := range agents {
		if a != "" {
			clean = append(clean, a)
		}
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultAgents...)
	}
	return &Pool{agents: clean, rng: rng}
}

// Pick returns one agent chosen uniformly at random
func (p *Pool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rng.IntN(len(p.agents))]
}

// Default returns the fixed identity used for session warm-up
func (p *Pool) Default() string {
	return p.agents[0]
}

// Len returns the number of identities in the pool
func (p *Pool) Len() int {
	return len(p.agents)
}

// BrowserHeaders builds the header set a regular browser sends on a navigation
func BrowserHeaders(agent, referer string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", agent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	h.Set("Cache-Control", "no-cache")
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

// ParseHeaders converts "Key: Value" lines into a header set.
// Lines without a colon or with an empty key are rejected.
func ParseHeaders(lines []string) (http.Header, error) {
	h := make(http.Header)
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", line)
		}
		h.Add(key, strings.TrimSpace(value))
	}
	return h, nil
}

// WithExtra returns base with every key in extra replacing the generated value
func WithExtra(base, extra http.Header) http.Header {
	for k, v := range extra {
		base[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return base
}
