package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const listingPage = `<html><body><span class="at-facet-header-total-results">1,234</span></body></html>`

func newSite(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollyFetcherFetchPage(t *testing.T) {
	var gotUA atomic.Value
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(listingPage))
	})

	f := NewCollyFetcher(Options{UserAgent: "stats-test/1.0"})
	body, err := f.FetchPage(context.Background(), srv.URL+"/jobs/in-south-east")
	require.NoError(t, err)
	assert.Contains(t, string(body), "1,234")
	assert.Equal(t, "stats-test/1.0", gotUA.Load())
}

func TestCollyFetcherErrorStatus(t *testing.T) {
	var hits int32
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	})

	f := NewCollyFetcher(Options{})
	_, err := f.FetchPage(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCollyFetcherSingleAttemptByDefault(t *testing.T) {
	var hits int32
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	f := NewCollyFetcher(Options{})
	_, err := f.FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCollyFetcherRetriesWhenConfigured(t *testing.T) {
	var hits int32
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(listingPage))
	})

	f := NewCollyFetcher(Options{Attempts: 2, Rate: rate.Inf})
	body, err := f.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "1,234")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCollyFetcherCancelledContext(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewCollyFetcher(Options{})
	_, err := f.FetchPage(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollyFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewCollyFetcher(Options{})
	_, err := f.FetchPage(context.Background(), addr)
	require.Error(t, err)

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestPoliteClientFetchPage(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte(listingPage))
	})

	p := NewPoliteClient(Options{UserAgent: "stats-test/1.0", Rate: rate.Inf})

	body, err := p.FetchPage(context.Background(), srv.URL+"/jobs/in-south-east")
	require.NoError(t, err)
	assert.Contains(t, string(body), "1,234")

	_, err = p.FetchPage(context.Background(), srv.URL+"/private/jobs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedByRobots)
}

func TestPoliteClientDecodesCharset(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// 0xA3 is the pound sign in Latin-1.
		_, _ = w.Write([]byte("<html><body><p>\xa350,000</p></body></html>"))
	})

	p := NewPoliteClient(Options{Rate: rate.Inf})
	body, err := p.FetchPage(context.Background(), srv.URL+"/salary")
	require.NoError(t, err)
	assert.Contains(t, string(body), "£50,000")
}

func TestPoliteClientErrorStatus(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	p := NewPoliteClient(Options{Rate: rate.Inf})
	_, err := p.FetchPage(context.Background(), srv.URL+"/jobs")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.Status)
}

func TestCollyFetcherPausesHostAfterRetryableStatus(t *testing.T) {
	var hits int32
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(listingPage))
	})

	f := NewCollyFetcher(Options{Attempts: 3})
	start := time.Now()
	body, err := f.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "1,234")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		raw    string
		target string
		host   string
		err    bool
	}{
		{raw: "https://www.CWJobs.co.uk/jobs/in-south-east", target: "https://www.CWJobs.co.uk/jobs/in-south-east", host: "cwjobs.co.uk"},
		{raw: "//jobs.example.com/jobs", target: "https://jobs.example.com/jobs", host: "jobs.example.com"},
		{raw: "", err: true},
		{raw: "http://[::1", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			target, host, err := resolveTarget(tt.raw)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.host, host)
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(http.StatusTooManyRequests))
	assert.True(t, retryableStatus(http.StatusBadGateway))
	assert.False(t, retryableStatus(http.StatusNotFound))
	assert.False(t, retryableStatus(0))
}
