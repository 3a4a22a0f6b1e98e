// Package wordlist streams candidate paths from a wordlist file. The
// source keeps a cursor over produced candidates so an interrupted scan
// can seek back to a checkpointed offset without re-reading completed
// entries or holding the whole file in memory.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrEndOfInput is returned by Next when the wordlist is exhausted.
var ErrEndOfInput = errors.New("end of wordlist")

// ErrSource marks wordlist access failures (unreadable file, offset out
// of range). Fatal at startup.
var ErrSource = errors.New("wordlist source error")

// Candidate is a single path to probe, ordinally ranked by its position
// among the produced entries. The index is the resume cursor.
type Candidate struct {
	Index int64
	Path  string
}

// Source lazily produces candidates from a wordlist file. Blank lines and
// '#' comments are skipped and do not consume indexes, so the cursor is
// stable across loads of the same file.
type Source struct {
	mu   sync.Mutex
	path string
	file *os.File
	sc   *bufio.Scanner
	next int64 // index of the next candidate Next will produce
}

// Open creates a streaming source over the given wordlist file.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrSource, path, err)
	}
	s := &Source{path: path, file: f}
	s.sc = newScanner(f)
	return s, nil
}

func newScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	// Some wordlists carry very long lines (payload lists); raise the cap.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

// Next returns the next candidate. Safe for concurrent use; exactly one
// caller receives each candidate. Returns ErrEndOfInput once exhausted.
func (s *Source) Next() (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

func (s *Source) nextLocked() (Candidate, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c := Candidate{Index: s.next, Path: line}
		s.next++
		return c, nil
	}
	if err := s.sc.Err(); err != nil {
		return Candidate{}, fmt.Errorf("%w: reading %s: %v", ErrSource, s.path, err)
	}
	return Candidate{}, ErrEndOfInput
}

// Position returns the index of the next candidate to be produced.
func (s *Source) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Seek repositions the source so the next candidate produced has the
// given index. Rewinds to the start of the file and skips forward; an
// offset past the end of the wordlist is an error.
func (s *Source) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrSource, offset)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewinding %s: %v", ErrSource, s.path, err)
	}
	s.sc = newScanner(s.file)
	s.next = 0

	for s.next < offset {
		if _, err := s.nextLocked(); err != nil {
			if errors.Is(err, ErrEndOfInput) {
				return fmt.Errorf("%w: offset %d past end of wordlist (%d entries)", ErrSource, offset, s.next)
			}
			return err
		}
	}
	return nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Count returns the number of candidates in the wordlist without keeping
// them in memory. Used to size the progress display.
func Count(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %v", ErrSource, path, err)
	}
	defer f.Close()

	var n int64
	sc := newScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrSource, path, err)
	}
	return n, nil
}

// LoadLines reads a simple auxiliary list (e.g. User-Agent pools) into
// memory, skipping blanks and comments.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrSource, path, err)
	}
	defer f.Close()

	var out []string
	sc := newScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSource, path, err)
	}
	return out, nil
}
