// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"
)

// Policy defines how many attempts a lookup gets and how long to pause between them
type Policy struct {
	MaxAttempts int           // Total fetch attempts, including the first
	MinBackoff  time.Duration // Lower bound of the randomized pause
	MaxBackoff  time.Duration // Upper bound of the randomized pause
}

// DefaultPolicy returns three attempts with a 2-4s jittered pause
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinBackoff:  2 * time.Second,
		MaxBackoff:  4 * time.Second,
	}
}

// Validate reports configuration errors
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1")
	}
	if p.MinBackoff < 0 || p.MaxBackoff < p.MinBackoff {
		return fmt.Errorf("backoff interval [%s, %s] is invalid", p.MinBackoff, p.MaxBackoff)
	}
	return nil
}

// Jitter draws backoff durations uniformly from a policy's interval.
// It is safe for concurrent use.
type Jitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter creates a Jitter seeded from the runtime source
func NewJitter() *Jitter {
	return NewJitterWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewJitterWithRand creates a Jitter drawing from rng
func NewJitterWithRand(rng *rand.Rand) *Jitter {
	return &Jitter{rng: rng}
}

// Backoff returns the pause before the given attempt (1-based).
// The first attempt never waits; later ones wait within [MinBackoff, MaxBackoff].
func (j *Jitter) Backoff(attempt int, p Policy) time.Duration {
	if attempt <= 1 {
		return 0
	}
	span := p.MaxBackoff - p.MinBackoff
	if span <= 0 {
		return p.MinBackoff
	}

	j.mu.Lock()
	n := j.rng.Int64N(int64(span) + 1)
	j.mu.Unlock()

	return p.MinBackoff + time.Duration(n)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// HTTPError represents an upstream response with an unexpected status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

// StatusCoder is an interface for errors that provide an HTTP status code
type StatusCoder interface {
	GetStatusCode() int
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func (e HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// StatusCode returns the status of the first StatusCoder in err's chain, or 0
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.GetStatusCode()
	}
	return 0
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, status string, message string) HTTPError {
	return HTTPError{
		StatusCode: statusCode,
		Status:     status,
		Message:    message,
	}
}
