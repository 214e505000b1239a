package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/logging"
)

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// BreakerThreshold is consecutive failures before a host's circuit opens.
	BreakerThreshold int
	// BreakerTimeout is how long an open circuit rejects requests.
	BreakerTimeout time.Duration
	// MaxBodyBytes caps the response size.
	MaxBodyBytes int64
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultHTTPConfig returns the fetcher defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:          30 * time.Second,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		MaxBodyBytes:     32 << 20,
		UserAgent:        "chartkit/1.0",
	}
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPConfig replaces the fetcher configuration. Zero fields keep
// their defaults.
func WithHTTPConfig(cfg HTTPConfig) HTTPOption {
	return func(f *HTTPFetcher) {
		def := DefaultHTTPConfig()
		if cfg.Timeout <= 0 {
			cfg.Timeout = def.Timeout
		}
		if cfg.BreakerThreshold <= 0 {
			cfg.BreakerThreshold = def.BreakerThreshold
		}
		if cfg.BreakerTimeout <= 0 {
			cfg.BreakerTimeout = def.BreakerTimeout
		}
		if cfg.MaxBodyBytes <= 0 {
			cfg.MaxBodyBytes = def.MaxBodyBytes
		}
		if cfg.UserAgent == "" {
			cfg.UserAgent = def.UserAgent
		}
		f.config = cfg
	}
}

// WithClient sets the HTTP client. Its timeout wins over the configured one.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *bolt.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// HTTPFetcher GETs JSON documents. Each host gets a circuit breaker so a
// refreshing chart stops hitting a host that keeps failing. Requests are
// never retried.
type HTTPFetcher struct {
	config   HTTPConfig
	client   *http.Client
	logger   *bolt.Logger
	breakers map[string]circuitbreaker.CircuitBreaker[[]byte]
	mu       sync.RWMutex
}

// NewHTTPFetcher creates an HTTP fetcher.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		config:   DefaultHTTPConfig(),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[[]byte]),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.config.Timeout}
	}
	f.logger = logging.Or(f.logger)
	return f
}

// Fetch implements Fetcher. Objects in the response keep their key order.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (any, error) {
	u, err := url.Parse(locator)
	if err != nil || !IsHTTP(locator) {
		return nil, &FetchError{Locator: locator, Err: ErrUnsupportedLocator}
	}

	start := time.Now()
	body, err := f.getBreaker(u.Host).Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, locator)
	})
	if err != nil {
		logging.NewEvent(f.logger.Warn()).
			Add(logging.URL(locator)).
			Add(logging.ErrorField(err)).
			Msg("fetch failed")
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{Locator: locator, Err: err}
	}

	data, err := coerce.DecodeJSON(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: fmt.Errorf("decode: %w", err)}
	}
	logging.NewEvent(f.logger.Debug()).
		Add(logging.URL(locator)).
		Add(logging.Count(len(body))).
		Add(logging.Duration(time.Since(start))).
		Msg("fetched")
	return data, nil
}

func (f *HTTPFetcher) get(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read body for error messages
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &FetchError{
			Locator: locator,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%w: %s", ErrBadStatus, bytes.TrimSpace(msg)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{Locator: locator, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}

// getBreaker returns the circuit breaker for a host, creating one if needed.
func (f *HTTPFetcher) getBreaker(host string) circuitbreaker.CircuitBreaker[[]byte] {
	f.mu.RLock()
	breaker, exists := f.breakers[host]
	f.mu.RUnlock()

	if exists {
		return breaker
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists = f.breakers[host]; exists {
		return breaker
	}

	threshold := uint32(f.config.BreakerThreshold) // #nosec G115 -- validated positive by WithHTTPConfig
	breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    f.config.BreakerTimeout,
		Timeout:     f.config.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	f.breakers[host] = breaker

	return breaker
}

// BreakerState returns the circuit breaker state for a host.
func (f *HTTPFetcher) BreakerState(host string) string {
	f.mu.RLock()
	breaker, exists := f.breakers[host]
	f.mu.RUnlock()

	if !exists {
		return "unknown"
	}

	return breaker.State().String()
}
