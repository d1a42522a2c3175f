package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// RetryConfig controls the fixed-delay retry loop.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client    *http.Client
	Retry     RetryConfig
	UserAgent string
}

// DefaultRetry matches the upstream services' tolerance: ten attempts, a few
// seconds apart.
func DefaultRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 10, Delay: 2 * time.Second}
}

// QueryHook is notified before every outbound HTTP attempt.
type QueryHook func(url string)

var (
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
	errExhausted     = errors.New("retries exhausted")
)

// Fetcher performs bounded-retry GETs and returns the body as text.
type Fetcher struct {
	name    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker

	mu    sync.RWMutex
	hooks []QueryHook
}

// NewFetcher creates a Fetcher whose attempts all run through one circuit
// breaker. The breaker only trips after two full retry cycles have failed.
func NewFetcher(name string, cfg HTTPClientConfig) *Fetcher {
	trip := uint32(2 * cfg.Retry.MaxAttempts)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
	})

	return &Fetcher{
		name:    name,
		httpCfg: cfg,
		circuit: cb,
	}
}

// Name returns the fetcher name used in logs and metrics.
func (f *Fetcher) Name() string {
	return f.name
}

// OnQuery registers a hook fired before every attempt.
func (f *Fetcher) OnQuery(hook QueryHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook)
}

func (f *Fetcher) notify(url string) {
	f.mu.RLock()
	hooks := f.hooks
	f.mu.RUnlock()

	for _, h := range hooks {
		h(url)
	}
}

// Get fetches url, retrying with a fixed delay until an attempt returns a
// 2xx response or the attempts run out.
func (f *Fetcher) Get(ctx context.Context, url string) (string, error) {
	if f.httpCfg.Client == nil {
		return "", errNoHTTPClient
	}
	if url == "" || f.httpCfg.Retry.MaxAttempts <= 0 || f.httpCfg.Retry.Delay < 0 {
		return "", errInvalidConfig
	}

	var lastErr error
	for attempt := 1; attempt <= f.httpCfg.Retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		f.notify(url)
		log.Printf("DEBUG: %s: querying %s (attempt %d)", f.name, url, attempt)

		result, err := f.circuit.Execute(func() (interface{}, error) {
			return f.do(ctx, url)
		})
		if err == nil {
			body, ok := result.(string)
			if !ok {
				return "", fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%s: %w: %v", f.name, errCircuitOpen, err)
		}

		lastErr = err
		log.Printf("%s: attempt %d for %s failed: %v", f.name, attempt, url, err)
		if attempt == f.httpCfg.Retry.MaxAttempts {
			break
		}

		timer := time.NewTimer(f.httpCfg.Retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", fmt.Errorf("%s: %w after %d attempts: %v", f.name, errExhausted, f.httpCfg.Retry.MaxAttempts, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if f.httpCfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.httpCfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := f.httpCfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
