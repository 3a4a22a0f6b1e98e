// Package config holds scan configuration, startup validation, and the
// configuration fingerprint used to guard checkpoint resumes.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrConfiguration marks invalid settings detected at startup. Invalid
// values are never silently clamped.
var ErrConfiguration = errors.New("invalid configuration")

// Range is an inclusive numeric interval. A nil *Range means the
// corresponding filter is disabled.
type Range struct {
	Min int64
	Max int64
}

// Contains reports whether v falls inside the range.
func (r *Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// Options holds all configuration for a dirblast scan.
type Options struct {
	// Target
	URL          string
	WordlistPath string

	// Performance
	Threads int
	Timeout time.Duration
	MaxRPS  float64
	Retries int

	// Evasion
	RotateUserAgent bool
	RotateIPHeaders bool
	UserAgentsPath  string // file with one UA per line, empty = built-in pool
	DelayMin        time.Duration
	DelayMax        time.Duration
	CacheBust       bool

	// Wildcard detection
	DetectWildcards   bool
	WildcardTolerance int64 // content-length fuzz window in bytes

	// Filtering
	ExcludeStatus []int
	OnlySuccess   bool
	FilterSize    *Range // content length bounds, nil = disabled
	FilterTime    time.Duration
	FilterWords   *Range // body word count bounds, nil = disabled

	// HTTP
	Headers         map[string]string
	UserAgent       string
	AuthHeader      string // raw Authorization value
	BasicAuth       string // user:pass
	BearerToken     string
	Proxy           string
	FollowRedirects bool
	Insecure        bool
	CookieJar       bool // retain cookies across requests

	// Checkpoint / resume
	StateFile          string
	CheckpointInterval int // completed candidates between periodic saves

	// Output
	OutputFile   string
	OutputFormat string // "text", "json", "csv", "xml"
	SortBy       string // "", "status", "path", "size"
	OnResultCmd  string
	Quiet        bool
	NoColor      bool
	NoProgress   bool
}

// Validate checks option consistency. All violations are fatal at startup.
func (o *Options) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("%w: target URL required", ErrConfiguration)
	}
	if o.WordlistPath == "" {
		return fmt.Errorf("%w: wordlist required", ErrConfiguration)
	}
	if o.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrConfiguration, o.Threads)
	}
	if o.DelayMin < 0 || o.DelayMax < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrConfiguration)
	}
	if o.DelayMax > 0 && o.DelayMin > o.DelayMax {
		return fmt.Errorf("%w: delay-min (%s) exceeds delay-max (%s)", ErrConfiguration, o.DelayMin, o.DelayMax)
	}
	if o.WildcardTolerance < 0 {
		return fmt.Errorf("%w: wildcard tolerance must not be negative", ErrConfiguration)
	}
	if o.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrConfiguration)
	}
	if o.MaxRPS < 0 {
		return fmt.Errorf("%w: max-rps must not be negative", ErrConfiguration)
	}
	if err := validateRange("filter-size", o.FilterSize); err != nil {
		return err
	}
	if err := validateRange("filter-words", o.FilterWords); err != nil {
		return err
	}
	if o.FilterTime < 0 {
		return fmt.Errorf("%w: filter-time must not be negative", ErrConfiguration)
	}
	switch o.OutputFormat {
	case "", "text", "json", "csv", "xml":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrConfiguration, o.OutputFormat)
	}
	switch o.SortBy {
	case "", "status", "path", "size":
	default:
		return fmt.Errorf("%w: sort must be one of: status, path, size", ErrConfiguration)
	}
	return nil
}

func validateRange(name string, r *Range) error {
	if r == nil {
		return nil
	}
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%w: %s bounds must not be negative", ErrConfiguration, name)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: %s min (%d) exceeds max (%d)", ErrConfiguration, name, r.Min, r.Max)
	}
	return nil
}

// Fingerprint derives a stable hash over every setting that affects which
// candidates get probed and which outcomes get accepted. A checkpoint is
// only valid for resume when its fingerprint matches the current run's.
func (o *Options) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "url=%s\n", o.URL)
	fmt.Fprintf(&b, "wordlist=%s size=%d\n", o.WordlistPath, wordlistSize(o.WordlistPath))
	fmt.Fprintf(&b, "exclude-status=%v\n", sortedCopy(o.ExcludeStatus))
	fmt.Fprintf(&b, "only-success=%t\n", o.OnlySuccess)
	fmt.Fprintf(&b, "filter-size=%s\n", rangeKey(o.FilterSize))
	fmt.Fprintf(&b, "filter-time=%s\n", o.FilterTime)
	fmt.Fprintf(&b, "filter-words=%s\n", rangeKey(o.FilterWords))
	fmt.Fprintf(&b, "detect-wildcards=%t tolerance=%d\n", o.DetectWildcards, o.WildcardTolerance)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// wordlistSize folds the wordlist file size into the fingerprint so a
// swapped or edited wordlist invalidates old checkpoints.
func wordlistSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

func rangeKey(r *Range) string {
	if r == nil {
		return "off"
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

func sortedCopy(vals []int) []int {
	out := make([]int, len(vals))
	copy(out, vals)
	sort.Ints(out)
	return out
}

// ParseRange parses "min-max" or a single value "n" (meaning n-n) into a
// Range. Used for the size and word-count filter flags.
func ParseRange(s string) (*Range, error) {
	if s == "" {
		return nil, nil
	}
	if minStr, maxStr, ok := strings.Cut(s, "-"); ok {
		lo, err := strconv.ParseInt(strings.TrimSpace(minStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid range %q", ErrConfiguration, s)
		}
		hi, err := strconv.ParseInt(strings.TrimSpace(maxStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid range %q", ErrConfiguration, s)
		}
		return &Range{Min: lo, Max: hi}, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid range %q", ErrConfiguration, s)
	}
	return &Range{Min: v, Max: v}, nil
}

// ParseHeaders converts "Key: Value" strings into a header map.
func ParseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		key, val, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("%w: invalid header %q, expected 'Key: Value'", ErrConfiguration, h)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return out, nil
}
