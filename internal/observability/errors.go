package observability

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/allredmatt/server-based-job-site/internal/httpx"
)

const (
	ErrorNetwork   = "network"
	ErrorStatus    = "http_status"
	ErrorRateLimit = "rate_limit"
	ErrorRobots    = "robots"
	ErrorTimeout   = "timeout"
	ErrorCancelled = "cancelled"
	ErrorStore     = "store"
	ErrorUnknown   = "unknown"
)

// ClassifyFetchError buckets an error returned by a page fetcher.
func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, httpx.ErrBlockedByRobots):
		return ErrorRobots
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status == http.StatusTooManyRequests:
			return ErrorRateLimit
		case fe.Status >= 400:
			return ErrorStatus
		default:
			return ErrorNetwork
		}
	}
	return ErrorUnknown
}
