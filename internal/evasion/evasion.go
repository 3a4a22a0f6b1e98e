// Package evasion computes per-request header overrides and inter-request
// delays. Rotation pools are read-only after construction, so concurrent
// selection from many workers needs no locking.
package evasion

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// DefaultUserAgent is used when rotation is disabled or the pool is empty.
const DefaultUserAgent = "dirblast/1.0"

// defaultUserAgents is the built-in rotation pool used when no pool file
// is supplied.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/114",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/537",
	"Mozilla/5.0 (X11; Linux x86_64) Firefox/108",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_2) Mobile",
	DefaultUserAgent,
}

var referers = []string{
	"https://google.com",
	"https://bing.com",
	"https://duckduckgo.com",
	"https://github.com",
}

var languages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"fr-FR,fr;q=0.7",
	"de-DE,de;q=0.6",
	"es-ES,es;q=0.5",
}

var encodings = []string{
	"gzip, deflate, br",
	"gzip, deflate",
	"br",
	"*",
}

// Config controls which evasion techniques are active.
type Config struct {
	RotateUserAgent bool
	RotateIPHeaders bool
	UserAgents      []string // rotation pool; empty = built-in defaults
	DelayMin        time.Duration
	DelayMax        time.Duration
	CacheBust       bool
	StaticUserAgent string // used when rotation is disabled; empty = DefaultUserAgent
}

// Policy produces header overrides and pre-request delays. Safe for
// concurrent use by any number of workers.
type Policy struct {
	cfg Config
}

// New builds a policy. An empty user-agent pool with rotation enabled
// falls back to the built-in defaults rather than failing.
func New(cfg Config) *Policy {
	if cfg.RotateUserAgent && len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	return &Policy{cfg: cfg}
}

// Headers returns the per-request header overrides. With rotation off it
// returns the static configured headers unchanged.
func (p *Policy) Headers() http.Header {
	h := make(http.Header, 16)

	if p.cfg.RotateUserAgent {
		h.Set("User-Agent", p.cfg.UserAgents[rand.Intn(len(p.cfg.UserAgents))])
	} else if p.cfg.StaticUserAgent != "" {
		h.Set("User-Agent", p.cfg.StaticUserAgent)
	} else {
		h.Set("User-Agent", DefaultUserAgent)
	}

	if p.cfg.RotateIPHeaders {
		ip := randomIP()
		h.Set("X-Forwarded-For", ip)
		h.Set("X-Real-IP", ip)
		h.Set("True-Client-IP", ip)

		// Browser-like noise only makes sense alongside header spoofing.
		h.Set("Referer", referers[rand.Intn(len(referers))])
		h.Set("Accept-Language", languages[rand.Intn(len(languages))])
		h.Set("Accept-Encoding", encodings[rand.Intn(len(encodings))])
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("DNT", "1")
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Upgrade-Insecure-Requests", "1")
	}

	return h
}

// Delay returns the pre-request pause: zero when no delay is configured,
// the exact value for a degenerate [d,d] range, otherwise uniform in
// [min,max].
func (p *Policy) Delay() time.Duration {
	minD, maxD := p.cfg.DelayMin, p.cfg.DelayMax
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(rand.Int63n(int64(maxD-minD+1)))
}

// DecoratePath optionally appends a cache-busting suffix to the candidate
// path so intermediary caches do not mask per-path behavior.
func (p *Policy) DecoratePath(path string) string {
	if !p.cfg.CacheBust {
		return path
	}
	switch rand.Intn(4) {
	case 0:
		return fmt.Sprintf("%s?_cb=%d", path, 10000+rand.Intn(90000))
	case 1:
		return fmt.Sprintf("%s;sessionid=%d", path, 100000+rand.Intn(900000))
	default:
		return path
	}
}

// randomIP returns a random routable-looking IPv4 for spoofed headers.
func randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+rand.Intn(254),
		rand.Intn(255),
		rand.Intn(255),
		1+rand.Intn(254),
	)
}
