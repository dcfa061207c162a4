// Package api exposes plate lookups over a small JSON HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/rclookup/internal/reqctx"
	"github.com/law-makers/rclookup/internal/resolver"
	"github.com/law-makers/rclookup/pkg/models"
)

// HealthText is the body served on GET /
const HealthText = "Vehicle API Status: Active"

// Lookuper resolves a raw plate into a result
type Lookuper interface {
	Lookup(ctx context.Context, raw string) (models.Result, error)
}

// Envelope is the JSON body of every /api/vehicle response
type Envelope struct {
	Status    string        `json:"status"`
	VehicleNo string        `json:"vehicle_no"`
	Data      models.Record `json:"data,omitempty"`
	Message   string        `json:"message,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// Server wraps the lookup handlers.
type Server struct {
	lookup Lookuper
	mux    *http.ServeMux
}

// New constructs a new Server with routes registered.
func New(l Lookuper) (*Server, error) {
	if l == nil {
		return nil, errors.New("lookuper is nil")
	}

	srv := &Server{
		lookup: l,
		mux:    http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down API")
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /api/vehicle/{vno}", s.handleVehicle)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HealthText))
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := reqctx.WithRequestContext(r.Context())
	res, err := s.lookup.Lookup(ctx, r.PathValue("vno"))

	env := Envelope{
		Status:    "success",
		VehicleNo: res.VehicleNo,
		Data:      res.Data,
		RequestID: res.RequestID,
	}
	if err != nil {
		env.Status = "error"
		env.Message = res.Message
		log.Debug().
			Err(err).
			Str("request_id", reqctx.RequestIDOf(err)).
			Str("vehicle_no", res.VehicleNo).
			Msg("Lookup failed")
	}
	writeJSON(w, statusFor(err), env)
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var lerr *resolver.LookupError
	if !errors.As(err, &lerr) {
		return http.StatusInternalServerError
	}
	switch lerr.Code {
	case resolver.CodeInvalidInput:
		return http.StatusBadRequest
	case resolver.CodeNoRecord:
		return http.StatusNotFound
	case resolver.CodeBlocked, resolver.CodeTransport, resolver.CodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
