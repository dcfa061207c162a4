package identity

import (
	"math/rand/v2"
	"testing"
)

func TestPool_PickStaysInPool(t *testing.T) {
	agents := []string{"a1", "a2", "a3"}
	pool := NewPoolWithRand(agents, rand.New(rand.NewPCG(1, 2)))

	seen := make(map[string]int)
	for i := 0; i < 300; i++ {
		seen[pool.Pick()]++
	}

	for a := range seen {
		if a != "a1" && a != "a2" && a != "a3" {
			t.Errorf("Pick returned %q, which is not in the pool", a)
		}
	}
	// 300 uniform draws over 3 agents should hit every one
	if len(seen) != 3 {
		t.Errorf("Expected all 3 agents to be picked, got %v", seen)
	}
}

func TestPool_DefaultIsFirst(t *testing.T) {
	pool := NewPool([]string{"first", "second"})
	if pool.Default() != "first" {
		t.Errorf("Expected default 'first', got %q", pool.Default())
	}
}

func TestPool_EmptyFallsBack(t *testing.T) {
	pool := NewPool([]string{"", ""})
	if pool.Len() != len(DefaultAgents) {
		t.Errorf("Expected %d default agents, got %d", len(DefaultAgents), pool.Len())
	}
}

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders("UA/1.0", "https://vahanx.in/")
	if h.Get("User-Agent") != "UA/1.0" {
		t.Errorf("Expected user agent UA/1.0, got %q", h.Get("User-Agent"))
	}
	if h.Get("Referer") != "https://vahanx.in/" {
		t.Errorf("Expected referer, got %q", h.Get("Referer"))
	}
	if h.Get("Accept-Language") == "" || h.Get("Connection") != "keep-alive" {
		t.Errorf("Expected language and connection headers, got %v", h)
	}

	if BrowserHeaders("UA", "").Get("Referer") != "" {
		t.Error("Expected no referer when none given")
	}
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders([]string{"x-forwarded-for: 10.0.0.1", "Accept-Language:hi-IN"})
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}
	if h.Get("X-Forwarded-For") != "10.0.0.1" || h.Get("Accept-Language") != "hi-IN" {
		t.Errorf("Unexpected headers: %v", h)
	}

	for _, bad := range []string{"NoColon", ": value"} {
		if _, err := ParseHeaders([]string{bad}); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestWithExtra(t *testing.T) {
	extra, _ := ParseHeaders([]string{"Accept-Language: hi-IN"})
	h := WithExtra(BrowserHeaders("UA", ""), extra)

	if got := h.Values("Accept-Language"); len(got) != 1 || got[0] != "hi-IN" {
		t.Errorf("Expected override, got %v", got)
	}
	if h.Get("User-Agent") != "UA" {
		t.Error("Expected generated headers to survive")
	}
}
