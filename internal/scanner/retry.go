package scanner

import (
	"context"
	"net/http"
	"time"
)

// RetryProber wraps a Prober with a bounded retry budget. Transport
// errors, 429s, and 5xx responses are retried with linear backoff. The
// worker pool itself never retries; callers who want retries layer this
// around the base Requester.
type RetryProber struct {
	inner   Prober
	retries int
	pause   time.Duration
}

// NewRetryProber wraps inner. With retries == 0 it is a pass-through.
func NewRetryProber(inner Prober, retries int) *RetryProber {
	return &RetryProber{inner: inner, retries: retries, pause: 500 * time.Millisecond}
}

// Do sends the request, retrying up to the configured budget. The last
// response or error is returned once the budget is exhausted.
func (r *RetryProber) Do(ctx context.Context, path string, overrides http.Header) (*Response, error) {
	var resp *Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = r.inner.Do(ctx, path, overrides)
		if attempt >= r.retries {
			break
		}
		if err == nil && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			break
		}
		select {
		case <-time.After(r.pause * time.Duration(attempt+1)):
		case <-ctx.Done():
			return resp, err
		}
	}
	return resp, err
}
