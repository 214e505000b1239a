// Package source acquires chart data from where it lives: HTTP endpoints,
// local JSON, CSV and xlsx files.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnsupportedLocator is returned for locators no fetcher handles.
	ErrUnsupportedLocator = errors.New("unsupported data locator")

	// ErrBadStatus is returned for non-2xx HTTP responses.
	ErrBadStatus = errors.New("unexpected status")

	// ErrEmptyTable is returned for CSV or sheet data without a header row.
	ErrEmptyTable = errors.New("table has no header row")
)

// Fetcher loads the raw data behind a locator. The result is one of the
// shapes the coerce package accepts.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (any, error)
}

// FetchError describes a failed acquisition.
type FetchError struct {
	Locator string
	Status  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Locator, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsHTTP reports whether locator is an http or https URL.
func IsHTTP(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Router sends HTTP URLs to one fetcher and file paths to another.
type Router struct {
	HTTP Fetcher
	File Fetcher
}

// NewRouter returns a Router over a default HTTPFetcher and FileFetcher.
func NewRouter(opts ...HTTPOption) *Router {
	return &Router{HTTP: NewHTTPFetcher(opts...), File: NewFileFetcher()}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) (any, error) {
	if IsHTTP(locator) {
		if r.HTTP == nil {
			return nil, &FetchError{Locator: locator, Err: ErrUnsupportedLocator}
		}
		return r.HTTP.Fetch(ctx, locator)
	}
	if r.File == nil {
		return nil, &FetchError{Locator: locator, Err: ErrUnsupportedLocator}
	}
	return r.File.Fetch(ctx, locator)
}
