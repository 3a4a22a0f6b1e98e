package output

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/dirblast/dirblast/internal/scanner"
)

type xmlEntry struct {
	Path          string `xml:"path"`
	URL           string `xml:"url"`
	StatusCode    int    `xml:"status"`
	ContentLength int64  `xml:"size"`
	WordCount     int    `xml:"words"`
	TimeMillis    int64  `xml:"time-ms"`
}

type xmlReport struct {
	XMLName   xml.Name   `xml:"scan"`
	SessionID string     `xml:"session-id,attr"`
	State     string     `xml:"state,attr"`
	Processed int64      `xml:"processed"`
	Accepted  int64      `xml:"accepted"`
	Filtered  int64      `xml:"filtered"`
	Failed    int64      `xml:"failed"`
	Results   []xmlEntry `xml:"results>result"`
}

// XMLWriter buffers results and writes a single XML document.
type XMLWriter struct {
	w       io.Writer
	closer  io.Closer
	entries []xmlEntry
}

// NewXMLWriter creates an XML output writer.
func NewXMLWriter(outputFile string) (*XMLWriter, error) {
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
	return &XMLWriter{w: w, closer: closer}, nil
}

func (x *XMLWriter) WriteHeader() error { return nil }

func (x *XMLWriter) WriteResult(result *scanner.Result) error {
	resp := result.Response
	x.entries = append(x.entries, xmlEntry{
		Path:          result.Candidate.Path,
		URL:           resp.URL,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		WordCount:     resp.WordCount,
		TimeMillis:    resp.Duration.Milliseconds(),
	})
	return nil
}

func (x *XMLWriter) WriteFooter(stats Stats) error {
	report := xmlReport{
		SessionID: stats.SessionID,
		State:     stats.State,
		Processed: stats.Processed,
		Accepted:  stats.Accepted,
		Filtered:  stats.Filtered,
		Failed:    stats.Failed,
		Results:   x.entries,
	}
	if _, err := io.WriteString(x.w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(x.w)
	enc.Indent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	_, err := io.WriteString(x.w, "\n")
	return err
}

func (x *XMLWriter) Close() error {
	if x.closer != nil {
		return x.closer.Close()
	}
	return nil
}
