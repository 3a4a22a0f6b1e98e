package filter

import (
	"time"

	"github.com/dirblast/dirblast/internal/config"
	"github.com/dirblast/dirblast/internal/scanner"
)

// Build assembles the session's chain from the filter settings, in
// evaluation order: wildcard suppression, excluded status codes,
// only-success, content length bounds, response time cap, word count
// bounds. Disabled criteria contribute no filter.
func Build(opts *config.Options) *Chain {
	chain := NewChain()
	if opts.DetectWildcards {
		chain.Add(&WildcardFilter{})
	}
	if len(opts.ExcludeStatus) > 0 {
		chain.Add(NewStatusFilter(opts.ExcludeStatus))
	}
	if opts.OnlySuccess {
		chain.Add(&SuccessFilter{})
	}
	if opts.FilterSize != nil {
		chain.Add(&SizeFilter{bounds: opts.FilterSize})
	}
	if opts.FilterTime > 0 {
		chain.Add(&TimeFilter{max: opts.FilterTime})
	}
	if opts.FilterWords != nil {
		chain.Add(&WordsFilter{bounds: opts.FilterWords})
	}
	return chain
}

// WildcardFilter drops results classified as wildcard noise.
type WildcardFilter struct{}

func (f *WildcardFilter) Name() string { return "wildcard" }

func (f *WildcardFilter) Reject(result *scanner.Result) bool {
	return result.Wildcard
}

// StatusFilter drops results whose status code is in the excluded set.
type StatusFilter struct {
	exclude map[int]struct{}
}

// NewStatusFilter creates a filter over the excluded status codes.
func NewStatusFilter(exclude []int) *StatusFilter {
	f := &StatusFilter{exclude: make(map[int]struct{}, len(exclude))}
	for _, code := range exclude {
		f.exclude[code] = struct{}{}
	}
	return f
}

func (f *StatusFilter) Name() string { return "status" }

func (f *StatusFilter) Reject(result *scanner.Result) bool {
	_, ok := f.exclude[result.Response.StatusCode]
	return ok
}

// SuccessFilter drops everything outside the 2xx range.
type SuccessFilter struct{}

func (f *SuccessFilter) Name() string { return "only-success" }

func (f *SuccessFilter) Reject(result *scanner.Result) bool {
	code := result.Response.StatusCode
	return code < 200 || code > 299
}

// SizeFilter drops results whose content length falls outside the bounds.
type SizeFilter struct {
	bounds *config.Range
}

func (f *SizeFilter) Name() string { return "size" }

func (f *SizeFilter) Reject(result *scanner.Result) bool {
	return !f.bounds.Contains(result.Response.ContentLength)
}

// TimeFilter drops results slower than the configured maximum.
type TimeFilter struct {
	max time.Duration
}

func (f *TimeFilter) Name() string { return "time" }

func (f *TimeFilter) Reject(result *scanner.Result) bool {
	return result.Response.Duration > f.max
}

// WordsFilter drops results whose body word count falls outside the bounds.
type WordsFilter struct {
	bounds *config.Range
}

func (f *WordsFilter) Name() string { return "words" }

func (f *WordsFilter) Reject(result *scanner.Result) bool {
	return !f.bounds.Contains(int64(result.Response.WordCount))
}
