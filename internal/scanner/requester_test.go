package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/dirblast/dirblast/internal/config"
	"github.com/dirblast/dirblast/internal/evasion"
)

func testOptions(url string) *config.Options {
	return &config.Options{
		URL:     url,
		Threads: 2,
		Timeout: 5 * time.Second,
	}
}

func TestDoCapturesResponseShape(t *testing.T) {
	const body = "hello brave new world"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	r, err := NewRequester(testOptions(srv.URL))
	if err != nil {
		t.Fatalf("NewRequester: %v", err)
	}

	resp, err := r.Do(context.Background(), "admin", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.ContentLength != int64(len(body)) {
		t.Errorf("ContentLength = %d, want %d", resp.ContentLength, len(body))
	}
	if resp.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", resp.WordCount)
	}
	if want := murmur3.Sum64([]byte(body)); resp.Signature != want {
		t.Errorf("Signature = %d, want %d", resp.Signature, want)
	}
	if resp.Duration <= 0 {
		t.Error("Duration not measured")
	}
	if resp.URL != srv.URL+"/admin" {
		t.Errorf("URL = %q, want %q", resp.URL, srv.URL+"/admin")
	}
}

func TestDoJoinsPathsWithoutDoubleSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	r, err := NewRequester(testOptions(srv.URL + "/base/"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Do(context.Background(), "/admin", nil); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/base/admin" {
		t.Errorf("request path = %q, want /base/admin", gotPath)
	}
}

func TestDoStaticHeadersAndOverrides(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.Headers = map[string]string{"X-Static": "yes", "User-Agent": "static/1"}
	r, err := NewRequester(opts)
	if err != nil {
		t.Fatal(err)
	}

	overrides := http.Header{}
	overrides.Set("User-Agent", "rotated/2")
	overrides.Set("Accept-Language", "fr-FR")
	if _, err := r.Do(context.Background(), "x", overrides); err != nil {
		t.Fatal(err)
	}
	if got.Get("X-Static") != "yes" {
		t.Errorf("X-Static = %q, want yes", got.Get("X-Static"))
	}
	// Explicitly configured headers win over per-request evasion values.
	if got.Get("User-Agent") != "static/1" {
		t.Errorf("User-Agent = %q, want static/1", got.Get("User-Agent"))
	}
	// Overrides the user did not pin still apply.
	if got.Get("Accept-Language") != "fr-FR" {
		t.Errorf("Accept-Language = %q, want fr-FR", got.Get("Accept-Language"))
	}
}

func TestDoExplicitUserAgentSurvivesPolicyDefault(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.Headers = map[string]string{"User-Agent": "custom-agent"}
	r, err := NewRequester(opts)
	if err != nil {
		t.Fatal(err)
	}

	// Rotation off: the policy still emits its default User-Agent, which
	// must not replace the one the user configured.
	policy := evasion.New(evasion.Config{})
	if _, err := r.Do(context.Background(), "x", policy.Headers()); err != nil {
		t.Fatal(err)
	}
	if got != "custom-agent" {
		t.Errorf("server saw User-Agent %q, want the configured custom-agent", got)
	}
}

func TestDoAuthPrecedence(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	cases := []struct {
		name   string
		mutate func(*config.Options)
		want   string
	}{
		{
			"auth header wins over bearer",
			func(o *config.Options) { o.AuthHeader = "Custom abc"; o.BearerToken = "tok" },
			"Custom abc",
		},
		{
			"bearer token",
			func(o *config.Options) { o.BearerToken = "tok" },
			"Bearer tok",
		},
		{
			"basic auth",
			func(o *config.Options) { o.BasicAuth = "user:pass" },
			"Basic dXNlcjpwYXNz",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(srv.URL)
			tc.mutate(opts)
			r, err := NewRequester(opts)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := r.Do(context.Background(), "x", nil); err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("Authorization = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewRequesterRejectsMalformedBasicAuth(t *testing.T) {
	opts := testOptions("http://example.com")
	opts.BasicAuth = "nocolon"
	if _, err := NewRequester(opts); err == nil {
		t.Error("expected error for basic auth without a colon")
	}
}

func TestDoRedirectsNotFollowedByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redir" {
			http.Redirect(w, r, "/target", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r, err := NewRequester(testOptions(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := r.Do(context.Background(), "redir", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("StatusCode = %d, want 301 (redirect reported, not followed)", resp.StatusCode)
	}

	opts := testOptions(srv.URL)
	opts.FollowRedirects = true
	r2, err := NewRequester(opts)
	if err != nil {
		t.Fatal(err)
	}
	resp, err = r2.Do(context.Background(), "redir", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 after following redirect", resp.StatusCode)
	}
}

func TestDoTransportError(t *testing.T) {
	// A server brought up and torn down leaves a port that refuses
	// connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r, err := NewRequester(testOptions(url))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Do(context.Background(), "x", nil); !errors.Is(err, ErrTransport) {
		t.Errorf("got %v, want ErrTransport", err)
	}
}

func TestDoCookieJar(t *testing.T) {
	var lastCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			lastCookie = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cr3t"})
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.CookieJar = true
	r, err := NewRequester(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Do(context.Background(), "a", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Do(context.Background(), "b", nil); err != nil {
		t.Fatal(err)
	}
	if lastCookie != "s3cr3t" {
		t.Errorf("second request carried session=%q, want s3cr3t", lastCookie)
	}

	// Without the jar, cookies are never retained.
	lastCookie = ""
	r2, err := NewRequester(testOptions(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	r2.Do(context.Background(), "a", nil)
	r2.Do(context.Background(), "b", nil)
	if lastCookie != "" {
		t.Errorf("cookie %q retained without --cookie-jar", lastCookie)
	}
}

func TestDoRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.MaxRPS = 20
	r, err := NewRequester(opts)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := r.Do(context.Background(), "x", nil); err != nil {
			t.Fatal(err)
		}
	}
	// 5 requests at 20 rps: 4 inter-request gaps of 50ms.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 requests at 20 rps finished in %v, expected rate limiting", elapsed)
	}
}
