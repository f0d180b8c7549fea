package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// Options tunes a fetcher. Zero values mean: no timeout, a single attempt and
// no per-host rate limit.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Attempts  int
	Rate      rate.Limit
	Burst     int
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "job-site-stats/1.0"
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Rate == 0 {
		o.Rate = rate.Inf
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	return o
}

// FetchError reports a page that could not be retrieved. Status is 0 when no
// response arrived.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CollyFetcher downloads listing pages with a fresh colly collector per call.
// Only the per-host throttle state survives between calls.
type CollyFetcher struct {
	opts Options

	mu       sync.Mutex
	throttle map[string]*hostThrottle
}

// hostThrottle spaces requests to one host and holds the pause imposed after
// a 429 or 5xx answer.
type hostThrottle struct {
	limiter *rate.Limiter

	mu         sync.Mutex
	pauseUntil time.Time
}

func NewCollyFetcher(opts Options) *CollyFetcher {
	return &CollyFetcher{
		opts:     opts.withDefaults(),
		throttle: make(map[string]*hostThrottle),
	}
}

// FetchPage returns the raw body of rawURL. A status of 400 or more is an error.
func (f *CollyFetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	target, host, err := resolveTarget(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	th := f.throttleFor(host)

	var (
		body   []byte
		status int
	)
	for attempt := 0; attempt < f.opts.Attempts; attempt++ {
		if err = th.wait(ctx); err != nil {
			return nil, &FetchError{URL: target, Err: err}
		}
		body, status, err = f.get(ctx, target)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil || !retryableStatus(status) {
			break
		}
		th.pause(500 * time.Millisecond << attempt)
	}
	return nil, &FetchError{URL: target, Status: status, Err: err}
}

// get performs a single request and reports the status seen, if any.
func (f *CollyFetcher) get(ctx context.Context, target string) ([]byte, int, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
		colly.StdlibContext(ctx),
	)
	// Robots are the polite fetcher's concern; a fresh collector would
	// otherwise re-download robots.txt for every page.
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(f.opts.Timeout)

	var (
		body   []byte
		status int
		reqErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	err := c.Request(http.MethodGet, target, nil, nil, nil)
	// colly swallows cancellation on some paths.
	if ctx.Err() != nil {
		return nil, status, ctx.Err()
	}
	switch {
	case err != nil:
		return nil, status, err
	case reqErr != nil:
		return nil, status, reqErr
	case status >= 400:
		return nil, status, fmt.Errorf("status %d", status)
	}
	return body, status, nil
}

func (f *CollyFetcher) throttleFor(host string) *hostThrottle {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.throttle[host]
	if !ok {
		th = &hostThrottle{limiter: rate.NewLimiter(f.opts.Rate, f.opts.Burst)}
		f.throttle[host] = th
	}
	return th
}

func (t *hostThrottle) pause(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until := time.Now().Add(d); until.After(t.pauseUntil) {
		t.pauseUntil = until
	}
}

// wait blocks until any pause has elapsed and the limiter grants a token.
func (t *hostThrottle) wait(ctx context.Context) error {
	t.mu.Lock()
	remaining := time.Until(t.pauseUntil)
	t.mu.Unlock()

	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.limiter.Wait(ctx)
}

// resolveTarget fills in a missing scheme and returns the URL together with
// the host key used for throttling.
func resolveTarget(rawURL string) (target, host string, err error) {
	if rawURL == "" {
		return "", "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return u.String(), host, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
