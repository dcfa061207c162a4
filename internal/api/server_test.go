package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/law-makers/rclookup/internal/resolver"
	"github.com/law-makers/rclookup/pkg/models"
)

type fakeLookup struct {
	res  models.Result
	err  error
	last string
}

func (f *fakeLookup) Lookup(ctx context.Context, raw string) (models.Result, error) {
	f.last = raw
	return f.res, f.err
}

func newTestServer(t *testing.T, l Lookuper) *httptest.Server {
	t.Helper()
	s, err := New(l)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeLookup{})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected permissive CORS header")
	}

	resp2, _ := http.Get(srv.URL + "/nope")
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", resp2.StatusCode)
	}
}

func TestVehicle_Success(t *testing.T) {
	fl := &fakeLookup{res: models.Result{
		Success:   true,
		VehicleNo: "MH12AB1234",
		Data:      models.Record{"Owner Name": "Jane Doe"},
	}}
	srv := newTestServer(t, fl)

	resp, err := http.Get(srv.URL + "/api/vehicle/mh12ab1234")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if env.Status != "success" || env.VehicleNo != "MH12AB1234" || env.Data["Owner Name"] != "Jane Doe" {
		t.Errorf("Unexpected envelope: %+v", env)
	}
	if fl.last != "mh12ab1234" {
		t.Errorf("Expected raw path value, got %q", fl.last)
	}
}

func TestVehicle_Errors(t *testing.T) {
	tests := []struct {
		code resolver.ErrorCode
		want int
	}{
		{resolver.CodeInvalidInput, http.StatusBadRequest},
		{resolver.CodeNoRecord, http.StatusNotFound},
		{resolver.CodeBlocked, http.StatusServiceUnavailable},
		{resolver.CodeTransport, http.StatusServiceUnavailable},
		{resolver.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fl := &fakeLookup{
				res: models.Result{VehicleNo: "X", Message: "busy"},
				err: resolver.NewLookupError(tt.code, "busy", nil),
			}
			srv := newTestServer(t, fl)

			resp, err := http.Get(srv.URL + "/api/vehicle/X")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
			var env Envelope
			json.NewDecoder(resp.Body).Decode(&env)
			if env.Status != "error" || env.Message != "busy" {
				t.Errorf("Unexpected envelope: %+v", env)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeLookup{})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/vehicle/X", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
}

func TestNew_Nil(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil lookuper")
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s, _ := New(&fakeLookup{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil && err != http.ErrServerClosed {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
