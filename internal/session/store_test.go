package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func cookieServer(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		time.Sleep(delay)
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s" + string(rune('0'+n)), Path: "/"})
		w.Write([]byte("<html>home</html>"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestStore_EnsureWarmsOnce(t *testing.T) {
	srv, hits := cookieServer(t, 50*time.Millisecond)
	store, err := NewStore(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info := store.Ensure(context.Background())
			if !info.Valid {
				t.Error("Expected valid session")
			}
		}()
	}
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("Expected exactly 1 warm-up request, got %d", got)
	}
	if store.Warmups() != 1 {
		t.Errorf("Expected Warmups() = 1, got %d", store.Warmups())
	}
	if info := store.Info(); info.Cookies != 1 || info.Degraded {
		t.Errorf("Expected 1 cookie and healthy session, got %+v", info)
	}
}

func TestStore_DegradedOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store, _ := NewStore(Options{BaseURL: url, WarmTimeout: time.Second})
	info := store.Ensure(context.Background())

	if !info.Valid || !info.Degraded {
		t.Errorf("Expected valid but degraded session, got %+v", info)
	}
	if info.Error == "" {
		t.Error("Expected warm-up error to be recorded")
	}

	// A degraded session is not re-warmed until invalidated
	store.Ensure(context.Background())
	if store.Warmups() != 1 {
		t.Errorf("Expected 1 warm-up, got %d", store.Warmups())
	}
}

func TestStore_InvalidateForcesRewarm(t *testing.T) {
	srv, hits := cookieServer(t, 0)
	store, _ := NewStore(Options{BaseURL: srv.URL})

	store.Ensure(context.Background())
	first := store.Cookies(store.BaseURL())

	store.Invalidate(context.Background())
	if store.Info().Valid {
		t.Error("Expected session to be invalid after Invalidate")
	}
	if len(store.Cookies(store.BaseURL())) != 0 {
		t.Error("Expected cookies to be dropped on Invalidate")
	}

	store.Ensure(context.Background())
	second := store.Cookies(store.BaseURL())

	if hits.Load() != 2 {
		t.Errorf("Expected 2 warm-ups, got %d", hits.Load())
	}
	if len(first) != 1 || len(second) != 1 || first[0].Value == second[0].Value {
		t.Errorf("Expected a fresh cookie after re-warm, got %v then %v", first, second)
	}
}

func TestStore_MaxAge(t *testing.T) {
	srv, hits := cookieServer(t, 0)
	store, _ := NewStore(Options{BaseURL: srv.URL, MaxAge: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Ensure(context.Background())
	store.Ensure(context.Background())
	if hits.Load() != 1 {
		t.Fatalf("Expected 1 warm-up, got %d", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	store.Ensure(context.Background())
	if hits.Load() != 2 {
		t.Errorf("Expected expired session to re-warm, got %d warm-ups", hits.Load())
	}
}

func TestStore_EnsureHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("ok"))
	}))
	defer srv.Close()
	defer close(release)

	store, _ := NewStore(Options{BaseURL: srv.URL, WarmTimeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	info := store.Ensure(ctx)
	if time.Since(start) > time.Second {
		t.Errorf("Expected Ensure to return promptly on cancel, took %s", time.Since(start))
	}
	if info.Valid {
		t.Error("Expected session to still be warming")
	}
}

func TestStore_PersistAndRestore(t *testing.T) {
	srv, _ := cookieServer(t, 0)
	persister := NewFilePersister(t.TempDir())

	store, _ := NewStore(Options{BaseURL: srv.URL, Persister: persister, Name: "test"})
	store.Ensure(context.Background())

	names, err := persister.List()
	if err != nil || len(names) != 1 || names[0] != "test" {
		t.Fatalf("Expected snapshot 'test', got %v (err %v)", names, err)
	}

	restored, _ := NewStore(Options{BaseURL: srv.URL, Persister: persister, Name: "test"})
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	info := restored.Ensure(context.Background())
	if !info.Valid || info.Cookies != 1 {
		t.Errorf("Expected restored session with 1 cookie, got %+v", info)
	}
	if restored.Warmups() != 0 {
		t.Errorf("Expected no warm-up after restore, got %d", restored.Warmups())
	}

	if err := restored.Forget(context.Background()); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if _, err := persister.Load("test"); err == nil {
		t.Error("Expected snapshot to be deleted")
	}
}

func TestStore_RestoreMismatchedURL(t *testing.T) {
	persister := NewFilePersister(t.TempDir())
	_ = persister.Save(&Snapshot{Name: "default", URL: "https://other.example/", CreatedAt: time.Now()})

	store, _ := NewStore(Options{BaseURL: "https://vahanx.in/", Persister: persister})
	if err := store.Restore(); err == nil {
		t.Error("Expected error restoring a snapshot taken for another URL")
	}
}

func TestNewStore_InvalidURL(t *testing.T) {
	if _, err := NewStore(Options{BaseURL: "::"}); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}
