package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/law-makers/rclookup/internal/extract"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterFlags(cmd)
	cmd.Flags().String("addr", DefaultServeAddr, "")
	cmd.Flags().String("keepalive-url", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	return cmd
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
		}
	}
	t.Setenv("PORT", "")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPTimeout != 15*time.Second || cfg.MaxAttempts != 3 || cfg.MinBodyLength != 5000 {
		t.Errorf("Unexpected defaults: timeout=%s attempts=%d min_body=%d", cfg.HTTPTimeout, cfg.MaxAttempts, cfg.MinBodyLength)
	}
	if cfg.MinBackoff != 2*time.Second || cfg.MaxBackoff != 4*time.Second {
		t.Errorf("Expected 2-4s backoff, got %s-%s", cfg.MinBackoff, cfg.MaxBackoff)
	}
	if len(cfg.Fields) != len(extract.DefaultFields) {
		t.Errorf("Expected default fields, got %d", len(cfg.Fields))
	}
	if cfg.Source != "" {
		t.Errorf("Expected no config file, got %s", cfg.Source)
	}
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
base_url: https://mirror.example/
timeout: 20s
proxies: ["http://p1:8080"]
retry:
  max_attempts: 5
  min_backoff: 1s
  max_backoff: 2s
browser:
  enabled: true
fields:
  - key: Vehicle No
    label: Registration Number
  - key: Owner Name
    label: owner
    match: contains
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(newCmd(t, "--config", path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "https://mirror.example/" || cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("Expected file values, got %s %s", cfg.BaseURL, cfg.HTTPTimeout)
	}
	if cfg.MaxAttempts != 5 || cfg.MinBackoff != time.Second || cfg.MaxBackoff != 2*time.Second {
		t.Errorf("Unexpected retry settings: %+v", cfg.RetryPolicy())
	}
	if !cfg.BrowserFallback {
		t.Error("Expected browser fallback from file")
	}
	want := []extract.FieldSpec{
		{Key: "Vehicle No", Label: "Registration Number"},
		{Key: "Owner Name", Label: "owner", Match: extract.MatchContains},
	}
	if diff := cmp.Diff(want, cfg.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
	if cfg.Source != path {
		t.Errorf("Expected source %s, got %s", path, cfg.Source)
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("timeout: 20s\nretry:\n  max_attempts: 5\n"), 0600)

	t.Setenv("RCLOOKUP_TIMEOUT", "25s")
	t.Setenv("RCLOOKUP_MAX_ATTEMPTS", "4")

	cfg, err := Load(newCmd(t, "--config", path, "--max-attempts", "2"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPTimeout != 25*time.Second {
		t.Errorf("Expected env to override file timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("Expected flag to override env attempts, got %d", cfg.MaxAttempts)
	}
}

func TestLoad_UnsetFlagsKeepLowerLayers(t *testing.T) {
	isolate(t)
	t.Setenv("RCLOOKUP_BASE_URL", "https://env.example/")

	cfg, err := Load(newCmd(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "https://env.example/" {
		t.Errorf("Expected env base URL to survive flag defaults, got %s", cfg.BaseURL)
	}
}

func TestLoad_VerboseQuiet(t *testing.T) {
	isolate(t)

	cfg, _ := Load(newCmd(t, "-v"))
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected debug, got %s", cfg.LogLevel)
	}
	cfg, _ = Load(newCmd(t, "-q"))
	if cfg.LogLevel != "error" {
		t.Errorf("Expected error, got %s", cfg.LogLevel)
	}
}

func TestLoad_EnvLists(t *testing.T) {
	isolate(t)
	t.Setenv("RCLOOKUP_USER_AGENTS", "UA One (X; Y)|UA Two")
	t.Setenv("RCLOOKUP_PROXY", "http://p1:1, http://p2:2")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"UA One (X; Y)", "UA Two"}, cfg.UserAgents); diff != "" {
		t.Errorf("UserAgents mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http://p1:1", "http://p2:2"}, cfg.Proxies); diff != "" {
		t.Errorf("Proxies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_HeaderFlag(t *testing.T) {
	isolate(t)

	cfg, err := Load(newCmd(t, "-H", "Accept-Language: hi-IN", "-H", "X-Trace: 1"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h := cfg.ExtraHeaders()
	if h.Get("Accept-Language") != "hi-IN" || h.Get("X-Trace") != "1" {
		t.Errorf("Expected parsed headers, got %v", h)
	}
}

func TestLoad_PortEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")

	cfg, _ := Load(nil)
	if cfg.ServeAddr != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.ServeAddr)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"RCLOOKUP_TIMEOUT": "soon"}},
		{"zero attempts", map[string]string{"RCLOOKUP_MAX_ATTEMPTS": "0"}},
		{"relative base", map[string]string{"RCLOOKUP_BASE_URL": "vahanx.in"}},
		{"inverted backoff", map[string]string{"RCLOOKUP_MIN_BACKOFF": "5s"}},
		{"bad proxy", map[string]string{"RCLOOKUP_PROXY": "nohost"}},
		{"bad path", map[string]string{"RCLOOKUP_SEARCH_PATH": "/search"}},
		{"bad header", map[string]string{"RCLOOKUP_HEADERS": "NoColon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(nil); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(newCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Error("Expected error for a missing explicit config file")
	}
}
