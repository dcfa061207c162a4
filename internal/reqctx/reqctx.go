package reqctx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const requestKey key = 0

// RequestContext identifies one plate resolution across log lines
type RequestContext struct {
	RequestID string
	StartTime time.Time
}

// WithRequestContext attaches a fresh request ID unless ctx already carries one
func WithRequestContext(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return ctx
	}
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: xid.New().String(),
		StartTime: time.Now(),
	})
}

// GetRequestContext returns the request context, or a placeholder
func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns the global logger tagged with the request ID
func Logger(ctx context.Context) zerolog.Logger {
	return log.With().Str("request_id", GetRequestContext(ctx).RequestID).Logger()
}

// RequestError tags a failed resolution with its request ID
type RequestError struct {
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%v (request %s)", e.Err, e.RequestID)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err with the request ID carried by ctx; nil stays nil
func NewRequestError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{
		RequestID: GetRequestContext(ctx).RequestID,
		Err:       err,
	}
}

// RequestIDOf returns the request ID attached to err, or ""
func RequestIDOf(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.RequestID
	}
	return ""
}
