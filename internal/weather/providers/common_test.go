package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyServer fails the first n requests with a 500 and then answers body.
func flakyServer(t *testing.T, n int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= n {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testFetcher(attempts int) *Fetcher {
	return NewFetcher("test", HTTPClientConfig{
		Client:    &http.Client{Timeout: 2 * time.Second},
		Retry:     RetryConfig{MaxAttempts: attempts, Delay: 0},
		UserAgent: "tids test",
	})
}

func TestFetcher_RetriesUntilSuccess(t *testing.T) {
	srv, hits := flakyServer(t, 2, `{"ok":true}`)

	f := testFetcher(5)
	var queries []string
	f.OnQuery(func(url string) { queries = append(queries, url) })

	body, err := f.Get(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, body)
	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, queries, 3)
	assert.Equal(t, srv.URL+"/data", queries[0])
}

func TestFetcher_Exhausted(t *testing.T) {
	srv, hits := flakyServer(t, 100, "")

	f := testFetcher(3)
	_, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, errExhausted)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_NonSuccessStatusRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(2).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, errExhausted)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_SendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	_, err := testFetcher(1).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tids test", ua)
}

func TestFetcher_InvalidConfig(t *testing.T) {
	_, err := testFetcher(0).Get(context.Background(), "http://example.invalid")
	assert.ErrorIs(t, err, errInvalidConfig)

	_, err = testFetcher(1).Get(context.Background(), "")
	assert.ErrorIs(t, err, errInvalidConfig)

	f := NewFetcher("noclient", HTTPClientConfig{Retry: DefaultRetry()})
	_, err = f.Get(context.Background(), "http://example.invalid")
	assert.ErrorIs(t, err, errNoHTTPClient)
}

func TestFetcher_ContextCancelledBetweenAttempts(t *testing.T) {
	srv, hits := flakyServer(t, 100, "")

	f := NewFetcher("slow", HTTPClientConfig{
		Client: &http.Client{Timeout: time.Second},
		Retry:  RetryConfig{MaxAttempts: 5, Delay: time.Hour},
	})
	ctx, cancel := context.WithCancel(context.Background())
	f.OnQuery(func(string) { cancel() })

	_, err := f.Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, hits.Load(), int32(1))
}
