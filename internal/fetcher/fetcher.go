// Package fetcher performs single, non-retrying GETs of the upstream search page.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/law-makers/rclookup/pkg/models"
)

// DefaultTimeout bounds a single fetch
const DefaultTimeout = 15 * time.Second

// DefaultSearchPath is the path template the plate is interpolated into
const DefaultSearchPath = "/rc-search/{plate}"

// Fetcher is one strategy for retrieving the search page of a plate
type Fetcher interface {
	// Fetch performs exactly one request. Transport failures are returned as
	// errors; any HTTP status, including errors, is returned as a Response.
	Fetch(ctx context.Context, q models.PlateQuery, jar http.CookieJar) (*Response, error)

	// Name returns the strategy name
	Name() string
}

// Response is the raw outcome of a fetch
type Response struct {
	Status   int
	Body     string
	URL      string
	Strategy string
	Duration time.Duration
}

// Target builds search URLs for normalized plates
type Target struct {
	Base       *url.URL
	PathFormat string
}

// NewTarget parses the upstream base URL and validates the path template
func NewTarget(base, pathFormat string) (Target, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Target{}, fmt.Errorf("invalid base URL %q", base)
	}
	if pathFormat == "" {
		pathFormat = DefaultSearchPath
	}
	if !strings.Contains(pathFormat, "{plate}") {
		return Target{}, fmt.Errorf("search path %q must contain {plate}", pathFormat)
	}
	return Target{Base: u, PathFormat: pathFormat}, nil
}

// SearchURL returns the search page URL for q
func (t Target) SearchURL(q models.PlateQuery) string {
	return SearchURL(t.Base, t.PathFormat, q)
}

// Referer returns the site root, sent as Referer on searches
func (t Target) Referer() string {
	return t.Base.Scheme + "://" + t.Base.Host + "/"
}

// SearchURL interpolates the path-escaped plate into pathFormat under base
func SearchURL(base *url.URL, pathFormat string, q models.PlateQuery) string {
	path := strings.ReplaceAll(pathFormat, "{plate}", url.PathEscape(q.String()))
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(base.String(), "/") + path
	}
	return base.ResolveReference(ref).String()
}
