package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dirblast/dirblast/internal/config"
	"github.com/dirblast/dirblast/internal/state"
)

func writeWordlist(t *testing.T, entries string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(entries), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietOptions(url, wordlist string) *config.Options {
	return &config.Options{
		URL:          url,
		WordlistPath: wordlist,
		Threads:      4,
		Timeout:      5 * time.Second,
		Quiet:        true,
		NoProgress:   true,
	}
}

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			w.Write([]byte("welcome to the admin panel"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.json")
	opts := quietOptions(srv.URL, writeWordlist(t, "admin\nbackup\nlogin\nconfig\nstatic\n"))
	opts.ExcludeStatus = []int{404}
	opts.OutputFormat = "json"
	opts.OutputFile = outFile
	opts.StateFile = filepath.Join(dir, "scan.state")

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.State != StateCompleted {
		t.Errorf("State = %q, want %q", summary.State, StateCompleted)
	}
	if summary.Processed != 5 || summary.Accepted != 1 || summary.Filtered != 4 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 5 processed / 1 accepted / 4 filtered", summary)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		State   string `json:"state"`
		Results []struct {
			Path   string `json:"path"`
			Status int    `json:"status"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Path != "admin" || report.Results[0].Status != 200 {
		t.Errorf("results = %+v, want only admin/200", report.Results)
	}

	// The final checkpoint points past the last candidate.
	cp, err := state.Load(opts.StateFile)
	if err != nil {
		t.Fatalf("Load checkpoint: %v", err)
	}
	if cp.Offset != 5 || cp.Processed != 5 {
		t.Errorf("checkpoint = %+v, want offset 5", cp)
	}
	if cp.SessionID != summary.SessionID {
		t.Errorf("checkpoint session %q != summary session %q", cp.SessionID, summary.SessionID)
	}
}

func TestRunOnlySuccessSingleWorker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			w.Write([]byte("ok"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := quietOptions(srv.URL, writeWordlist(t, "index\nadmin\nbackup\nlogin\nstatic\n"))
	opts.Threads = 1
	opts.OnlySuccess = true
	opts.OutputFormat = "json"
	opts.OutputFile = filepath.Join(t.TempDir(), "out.json")

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Accepted != 1 {
		t.Errorf("Accepted = %d, want exactly the admin hit", summary.Accepted)
	}

	data, err := os.ReadFile(opts.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Results []struct {
			Path string `json:"path"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 1 || report.Results[0].Path != "admin" {
		t.Errorf("accepted set = %+v, want {admin}", report.Results)
	}
}

func TestRunWildcardSuppression(t *testing.T) {
	// Catch-all server: every path answers 200 with near-identical bodies.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("custom not-found page for " + r.URL.Path))
	}))
	defer srv.Close()

	opts := quietOptions(srv.URL, writeWordlist(t, "admin\nbackup\nlogin\n"))
	opts.DetectWildcards = true
	opts.WildcardTolerance = 50
	opts.OutputFormat = "json"
	opts.OutputFile = filepath.Join(t.TempDir(), "out.json")

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0 (all responses match the catch-all baseline)", summary.Accepted)
	}
	if summary.Filtered != 3 {
		t.Errorf("Filtered = %d, want 3", summary.Filtered)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	defer srv.Close()

	dir := t.TempDir()
	opts := quietOptions(srv.URL, writeWordlist(t, "a\nb\nc\nd\ne\n"))
	opts.StateFile = filepath.Join(dir, "scan.state")
	opts.OutputFormat = "json"
	opts.OutputFile = filepath.Join(dir, "out.json")

	cp := &state.Checkpoint{
		SessionID:   "resumed-session",
		Fingerprint: opts.Fingerprint(),
		Offset:      3,
		Processed:   3,
		Accepted:    1,
		Failed:      0,
	}
	if err := state.Save(opts.StateFile, cp); err != nil {
		t.Fatal(err)
	}

	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.SessionID != "resumed-session" {
		t.Errorf("SessionID = %q, session identity not carried across resume", summary.SessionID)
	}
	// Counts carry forward: 3 from the checkpoint + 2 remaining.
	if summary.Processed != 5 {
		t.Errorf("Processed = %d, want 5", summary.Processed)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 {
		t.Fatalf("server saw %d requests, want 2 (only d and e remain): %v", len(paths), paths)
	}
	seen := map[string]bool{paths[0]: true, paths[1]: true}
	if !seen["/d"] || !seen["/e"] {
		t.Errorf("resumed scan probed %v, want /d and /e", paths)
	}
}

func TestRunRefusesMismatchedCheckpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dir := t.TempDir()
	opts := quietOptions(srv.URL, writeWordlist(t, "a\nb\n"))
	opts.StateFile = filepath.Join(dir, "scan.state")

	cp := &state.Checkpoint{
		SessionID:   "other",
		Fingerprint: "not-this-configuration",
		Offset:      1,
	}
	if err := state.Save(opts.StateFile, cp); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), opts); !errors.Is(err, state.ErrConfigMismatch) {
		t.Errorf("got %v, want ErrConfigMismatch", err)
	}
}

func TestRunRefusesCorruptCheckpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dir := t.TempDir()
	opts := quietOptions(srv.URL, writeWordlist(t, "a\n"))
	opts.StateFile = filepath.Join(dir, "scan.state")
	if err := os.WriteFile(opts.StateFile, []byte("{{{garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), opts); !errors.Is(err, state.ErrCorruptState) {
		t.Errorf("got %v, want ErrCorruptState", err)
	}
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	opts := quietOptions("http://example.com", "words.txt")
	opts.Threads = 0
	if _, err := Run(context.Background(), opts); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("got %v, want ErrConfiguration", err)
	}
}

func TestRunCancelledScanIsResumable(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stall so the scan is mid-flight when cancelled.
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer once.Do(func() { close(release) })

	dir := t.TempDir()
	opts := quietOptions(srv.URL, writeWordlist(t, "a\nb\nc\nd\ne\nf\ng\nh\n"))
	opts.Threads = 2
	opts.StateFile = filepath.Join(dir, "scan.state")
	opts.OutputFormat = "json"
	opts.OutputFile = filepath.Join(dir, "out.json")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
		once.Do(func() { close(release) })
	}()

	summary, err := Run(ctx, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.State != StateCancelled {
		t.Errorf("State = %q, want %q", summary.State, StateCancelled)
	}
	if summary.Processed >= 8 {
		t.Errorf("Processed = %d, expected a partial scan", summary.Processed)
	}

	cp, err := state.Load(opts.StateFile)
	if err != nil {
		t.Fatalf("no checkpoint after cancellation: %v", err)
	}
	if cp.Offset > 8 || cp.Offset < 0 {
		t.Errorf("checkpoint offset %d out of range", cp.Offset)
	}
	if cp.Fingerprint != opts.Fingerprint() {
		t.Error("checkpoint fingerprint does not match the configuration")
	}
}
