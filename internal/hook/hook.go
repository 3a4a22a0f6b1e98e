// Package hook forwards accepted results to an external shell command,
// letting the caller chain notifications or downstream tooling onto the
// scan without the engine knowing about them.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dirblast/dirblast/internal/scanner"
)

// resultJSON is the JSON payload sent to the hook command via stdin.
type resultJSON struct {
	Path          string `json:"path"`
	URL           string `json:"url"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	WordCount     int    `json:"words"`
	TimeMillis    int64  `json:"time_ms"`
}

// Runner executes a shell command for each accepted scan result.
type Runner struct {
	cmd   string
	quiet bool
}

// NewRunner creates a hook runner. cmd is the shell command to execute.
func NewRunner(cmd string, quiet bool) *Runner {
	return &Runner{cmd: cmd, quiet: quiet}
}

// Run executes the hook command with the result as JSON on stdin.
// The command runs with a 30-second timeout. Errors are reported but
// never halt the scan.
func (r *Runner) Run(result *scanner.Result) {
	resp := result.Response
	payload := resultJSON{
		Path:          result.Candidate.Path,
		URL:           resp.URL,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		WordCount:     resp.WordCount,
		TimeMillis:    resp.Duration.Milliseconds(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[hook] marshal error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Replace {url}, {path}, {status}, {size} placeholders in the command.
	expanded := r.cmd
	expanded = strings.ReplaceAll(expanded, "{url}", resp.URL)
	expanded = strings.ReplaceAll(expanded, "{path}", result.Candidate.Path)
	expanded = strings.ReplaceAll(expanded, "{status}", strconv.Itoa(resp.StatusCode))
	expanded = strings.ReplaceAll(expanded, "{size}", strconv.FormatInt(resp.ContentLength, 10))

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, expanded)...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		if !r.quiet {
			fmt.Fprintf(os.Stderr, "[hook] error: %v\n", err)
		}
		return
	}

	if len(output) > 0 && !r.quiet {
		fmt.Fprintf(os.Stderr, "[hook] %s", output)
	}
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
