package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
	"golang.org/x/time/rate"

	"github.com/dirblast/dirblast/internal/config"
)

// ErrTransport marks per-request network failures. These are recovered
// locally: the candidate is counted as failed and the scan continues.
var ErrTransport = errors.New("transport error")

// Response is the outcome of one probe: status, length, timing, and a
// cheap body signature used only for equality comparison. The body itself
// is never retained.
type Response struct {
	StatusCode    int
	ContentLength int64
	WordCount     int
	Signature     uint64 // murmur3 hash of the body
	Duration      time.Duration
	URL           string
}

// Prober is the abstract send-request capability the engine needs.
type Prober interface {
	Do(ctx context.Context, path string, overrides http.Header) (*Response, error)
}

// Requester implements Prober on top of net/http with static auth,
// custom headers, proxy support, and an optional requests-per-second cap.
type Requester struct {
	client    *http.Client
	baseURL   *url.URL
	headers   map[string]string
	authValue string // precomputed Authorization header, "" = none
	basicUser string
	basicPass string
	limiter   *rate.Limiter
}

// NewRequester creates a Requester from the provided options.
func NewRequester(opts *config.Options) (*Requester, error) {
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", opts.URL, err)
	}
	if base.Scheme == "" {
		base.Scheme = "http"
	}
	base.Path = strings.TrimRight(base.Path, "/")

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxIdleConnsPerHost: opts.Threads,
		MaxIdleConns:        opts.Threads,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	if opts.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.Jar = jar
	}

	if !opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	r := &Requester{
		client:  client,
		baseURL: base,
		headers: opts.Headers,
	}

	switch {
	case opts.AuthHeader != "":
		r.authValue = opts.AuthHeader
	case opts.BearerToken != "":
		r.authValue = "Bearer " + opts.BearerToken
	case opts.BasicAuth != "":
		user, pass, ok := strings.Cut(opts.BasicAuth, ":")
		if !ok {
			return nil, fmt.Errorf("invalid basic auth %q, expected user:pass", opts.BasicAuth)
		}
		r.basicUser, r.basicPass = user, pass
	}

	if opts.MaxRPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}

	return r, nil
}

// Do sends a GET request for the given path. Per-request evasion
// overrides are applied first, then the static configured headers, so an
// explicit header always wins over a rotated or defaulted value.
func (r *Requester) Do(ctx context.Context, path string, overrides http.Header) (*Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
	}

	targetURL := r.baseURL.String() + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	for k, vals := range overrides {
		for _, v := range vals {
			req.Header.Set(k, v)
		}
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.authValue != "" {
		req.Header.Set("Authorization", r.authValue)
	} else if r.basicUser != "" {
		req.SetBasicAuth(r.basicUser, r.basicPass)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body for %s: %v", ErrTransport, path, err)
	}
	elapsed := time.Since(start)

	return &Response{
		StatusCode:    resp.StatusCode,
		ContentLength: int64(len(body)),
		WordCount:     len(strings.Fields(string(body))),
		Signature:     murmur3.Sum64(body),
		Duration:      elapsed,
		URL:           targetURL,
	}, nil
}
