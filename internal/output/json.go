package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/dirblast/dirblast/internal/scanner"
)

type jsonEntry struct {
	Path          string `json:"path"`
	URL           string `json:"url"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	WordCount     int    `json:"words"`
	TimeMillis    int64  `json:"time_ms"`
}

type jsonReport struct {
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
	Processed int64       `json:"processed"`
	Accepted  int64       `json:"accepted"`
	Filtered  int64       `json:"filtered"`
	Failed    int64       `json:"failed"`
	Duration  float64     `json:"duration_seconds"`
	Rate      float64     `json:"requests_per_second"`
	Results   []jsonEntry `json:"results"`
}

// JSONWriter buffers results and writes a single report object.
type JSONWriter struct {
	w       io.Writer
	closer  io.Closer
	entries []jsonEntry
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
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
	return &JSONWriter{w: w, closer: closer}, nil
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(result *scanner.Result) error {
	resp := result.Response
	j.entries = append(j.entries, jsonEntry{
		Path:          result.Candidate.Path,
		URL:           resp.URL,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		WordCount:     resp.WordCount,
		TimeMillis:    resp.Duration.Milliseconds(),
	})
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	report := jsonReport{
		SessionID: stats.SessionID,
		State:     stats.State,
		Processed: stats.Processed,
		Accepted:  stats.Accepted,
		Filtered:  stats.Filtered,
		Failed:    stats.Failed,
		Duration:  stats.Duration.Seconds(),
		Rate:      stats.Rate,
		Results:   j.entries,
	}
	if report.Results == nil {
		report.Results = []jsonEntry{}
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
