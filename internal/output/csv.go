package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/dirblast/dirblast/internal/scanner"
)

// CSVWriter writes results in CSV format.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write([]string{"path", "url", "status", "size", "words", "time_ms"})
}

func (c *CSVWriter) WriteResult(result *scanner.Result) error {
	resp := result.Response
	return c.w.Write([]string{
		result.Candidate.Path,
		resp.URL,
		strconv.Itoa(resp.StatusCode),
		strconv.FormatInt(resp.ContentLength, 10),
		strconv.Itoa(resp.WordCount),
		strconv.FormatInt(resp.Duration.Milliseconds(), 10),
	})
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
