package output

import (
	"sort"

	"github.com/dirblast/dirblast/internal/scanner"
)

// SortedWriter buffers results and replays them sorted by a field when
// WriteFooter is called. Workers complete in arbitrary order, so ordered
// output is this sink's job, not the engine's.
type SortedWriter struct {
	inner   Writer
	sortBy  string
	results []*scanner.Result
}

// NewSortedWriter wraps inner and buffers results for sorted replay.
func NewSortedWriter(inner Writer, sortBy string) *SortedWriter {
	return &SortedWriter{inner: inner, sortBy: sortBy}
}

func (w *SortedWriter) WriteHeader() error {
	return w.inner.WriteHeader()
}

func (w *SortedWriter) WriteResult(result *scanner.Result) error {
	cpy := *result
	w.results = append(w.results, &cpy)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	sort.Slice(w.results, func(i, j int) bool {
		a, b := w.results[i], w.results[j]
		switch w.sortBy {
		case "status":
			return a.Response.StatusCode < b.Response.StatusCode
		case "size":
			return a.Response.ContentLength < b.Response.ContentLength
		case "path":
			return a.Candidate.Path < b.Candidate.Path
		default:
			return a.Candidate.Index < b.Candidate.Index
		}
	})
	for _, r := range w.results {
		if err := w.inner.WriteResult(r); err != nil {
			return err
		}
	}
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error {
	return w.inner.Close()
}
