// Package output is the result sink: accepted results are formatted as
// text, JSON, CSV, or XML, and a progress line is maintained on stderr.
// Results arrive in completion order; writers that need wordlist order
// buffer and sort, the engine never does.
package output

import (
	"fmt"
	"time"

	"github.com/dirblast/dirblast/internal/scanner"
)

// Stats holds the session summary written in the footer.
type Stats struct {
	SessionID string
	Processed int64
	Accepted  int64
	Filtered  int64
	Failed    int64
	Duration  time.Duration
	Rate      float64 // requests per second
	State     string  // "completed" or "cancelled"
}

// Writer is implemented by each output format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.Result) error
	WriteFooter(stats Stats) error
	Close() error
}

// New creates the writer for the configured format, optionally wrapped in
// a sorting buffer.
func New(format, outputFile, sortBy string, noColor, quiet bool) (Writer, error) {
	var (
		w   Writer
		err error
	)
	switch format {
	case "json":
		w, err = NewJSONWriter(outputFile)
	case "csv":
		w, err = NewCSVWriter(outputFile)
	case "xml":
		w, err = NewXMLWriter(outputFile)
	case "", "text":
		w, err = NewTextWriter(outputFile, noColor, quiet)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if sortBy != "" {
		w = NewSortedWriter(w, sortBy)
	}
	return w, nil
}
