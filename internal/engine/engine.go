// Package engine drives the scan session: it builds the wildcard
// baseline, runs the worker pool over the wordlist, classifies and
// filters outcomes, forwards accepted results to the output sink, and
// keeps the resumable checkpoint current.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dirblast/dirblast/internal/config"
	"github.com/dirblast/dirblast/internal/evasion"
	"github.com/dirblast/dirblast/internal/filter"
	"github.com/dirblast/dirblast/internal/hook"
	"github.com/dirblast/dirblast/internal/output"
	"github.com/dirblast/dirblast/internal/scanner"
	"github.com/dirblast/dirblast/internal/state"
	"github.com/dirblast/dirblast/internal/wildcard"
	"github.com/dirblast/dirblast/internal/wordlist"
)

// Session terminal states.
const (
	StateCompleted = "completed"
	StateCancelled = "cancelled"
)

// gracePeriod bounds how long in-flight requests may keep running after
// cancellation before they are abandoned.
const gracePeriod = 10 * time.Second

// defaultCheckpointInterval is the number of completed candidates between
// periodic checkpoint writes.
const defaultCheckpointInterval = 256

// Summary reports the session outcome to the caller.
type Summary struct {
	SessionID string
	Processed int64
	Accepted  int64
	Filtered  int64
	Failed    int64
	Elapsed   time.Duration
	Rate      float64
	State     string
}

// Run executes a full scan session and returns its summary. Session-level
// failures (wordlist, checkpoint, configuration) abort before any real
// candidate is dispatched; per-candidate transport failures are counted
// and never interrupt progress.
func Run(ctx context.Context, opts *config.Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	fingerprint := opts.Fingerprint()

	total, err := wordlist.Count(opts.WordlistPath)
	if err != nil {
		return nil, err
	}

	src, err := wordlist.Open(opts.WordlistPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Resume from a prior checkpoint if one exists for this configuration.
	sessionID := uuid.NewString()
	tracker := state.NewTracker(0, 0, 0, 0)
	if opts.StateFile != "" {
		cp, err := state.Load(opts.StateFile)
		switch {
		case errors.Is(err, state.ErrNotFound):
			// Fresh session.
		case err != nil:
			return nil, err
		default:
			if err := cp.Verify(fingerprint); err != nil {
				return nil, err
			}
			if err := src.Seek(cp.Offset); err != nil {
				return nil, err
			}
			sessionID = cp.SessionID
			tracker = state.NewTracker(cp.Offset, cp.Processed, cp.Accepted, cp.Failed)
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Resuming session %s at offset %d/%d\n", sessionID, cp.Offset, total)
			}
		}
	}

	requester, err := scanner.NewRequester(opts)
	if err != nil {
		return nil, err
	}
	var prober scanner.Prober = requester
	if opts.Retries > 0 {
		prober = scanner.NewRetryProber(requester, opts.Retries)
	}

	policy, err := buildPolicy(opts)
	if err != nil {
		return nil, err
	}

	// Initializing: the wildcard baseline is always rebuilt fresh, never
	// restored from a checkpoint, since catch-all behavior may have
	// changed since the scan was interrupted.
	var profile *wildcard.Profile
	if opts.DetectWildcards {
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[*] Building wildcard baseline against %s ...\n", opts.URL)
		}
		profile = wildcard.Build(ctx, prober, policy, opts.WildcardTolerance)
		if !opts.Quiet {
			if profile.Size() == 0 {
				fmt.Fprintf(os.Stderr, "[!] All baseline probes failed; wildcard detection disabled\n")
			} else {
				fmt.Fprintf(os.Stderr, "[+] Wildcard baseline ready (%d reference responses)\n", profile.Size())
			}
		}
	}

	saveCheckpoint := func() {
		if opts.StateFile == "" {
			return
		}
		cp := &state.Checkpoint{SessionID: sessionID, Fingerprint: fingerprint}
		tracker.Snapshot(cp)
		if err := state.Save(opts.StateFile, cp); err != nil && !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[!] Checkpoint write failed: %v\n", err)
		}
	}
	// Mandatory write at the end of the initializing phase.
	saveCheckpoint()

	chain := filter.Build(opts)

	out, err := output.New(opts.OutputFormat, opts.OutputFile, opts.SortBy, opts.NoColor, opts.Quiet)
	if err != nil {
		return nil, err
	}
	defer out.Close()
	if err := out.WriteHeader(); err != nil {
		return nil, err
	}

	var hookRunner *hook.Runner
	if opts.OnResultCmd != "" {
		hookRunner = hook.NewRunner(opts.OnResultCmd, opts.Quiet)
	}

	pauser, cleanupStdin := startStdinToggle(opts.Quiet || opts.NoProgress)
	defer cleanupStdin()

	interval := opts.CheckpointInterval
	if interval <= 0 {
		interval = defaultCheckpointInterval
	}

	remaining := total - src.Position()
	progress := output.NewProgress(remaining, opts.Quiet || opts.NoProgress)
	progress.Start()
	start := time.Now()

	results := scanner.RunPool(ctx, prober, src, scanner.PoolConfig{
		Workers: opts.Threads,
		Policy:  policy,
		Backoff: scanner.NewBackoff(true, opts.Quiet),
		Pauser:  pauser,
	})

	var fatal error
	var sinceSave int
	var graceCh <-chan time.Time

	handle := func(res scanner.Result) {
		if res.Candidate.Index < 0 {
			// Wordlist read failure mid-scan; finish draining and abort.
			fatal = res.Err
			return
		}
		progress.Increment()

		switch {
		case res.Err != nil:
			tracker.Complete(res.Candidate.Index, false, true)
			progress.IncrementErrors()
		default:
			if profile != nil {
				res.Wildcard = profile.Matches(res.Response)
			}
			accepted, reason := chain.Accept(&res)
			res.Accepted = accepted
			res.FilterReason = reason
			tracker.Complete(res.Candidate.Index, accepted, false)
			if accepted {
				progress.ClearLine()
				if err := out.WriteResult(&res); err != nil && fatal == nil {
					fatal = err
				}
				progress.Redraw()
				if hookRunner != nil {
					hookRunner.Run(&res)
				}
			} else {
				progress.IncrementFiltered()
			}
		}

		sinceSave++
		if sinceSave >= interval {
			saveCheckpoint()
			sinceSave = 0
		}
	}

consume:
	for {
		select {
		case res, ok := <-results:
			if !ok {
				break consume
			}
			handle(res)
		case <-ctx.Done():
			if graceCh == nil {
				graceCh = time.After(gracePeriod)
				if !opts.Quiet {
					progress.ClearLine()
					fmt.Fprintf(os.Stderr, "[*] Interrupt received; waiting for in-flight requests\n")
				}
			}
			select {
			case res, ok := <-results:
				if !ok {
					break consume
				}
				handle(res)
			case <-graceCh:
				// Outstanding requests are abandoned past the grace period.
				break consume
			}
		}
	}

	progress.Stop()

	terminal := StateCompleted
	if ctx.Err() != nil {
		terminal = StateCancelled
	}

	// Mandatory checkpoint on cancellation or completion.
	saveCheckpoint()

	if fatal != nil {
		return nil, fatal
	}

	processed, accepted, failed := tracker.Counts()
	elapsed := time.Since(start)
	summary := &Summary{
		SessionID: sessionID,
		Processed: processed,
		Accepted:  accepted,
		Filtered:  processed - accepted - failed,
		Failed:    failed,
		Elapsed:   elapsed,
		State:     terminal,
	}
	if elapsed.Seconds() > 0 {
		summary.Rate = float64(processed) / elapsed.Seconds()
	}

	if err := out.WriteFooter(output.Stats{
		SessionID: summary.SessionID,
		Processed: summary.Processed,
		Accepted:  summary.Accepted,
		Filtered:  summary.Filtered,
		Failed:    summary.Failed,
		Duration:  summary.Elapsed,
		Rate:      summary.Rate,
		State:     summary.State,
	}); err != nil {
		return nil, err
	}

	return summary, nil
}

// buildPolicy assembles the evasion policy, loading the User-Agent pool
// file when rotation is configured with one.
func buildPolicy(opts *config.Options) (*evasion.Policy, error) {
	cfg := evasion.Config{
		RotateUserAgent: opts.RotateUserAgent,
		RotateIPHeaders: opts.RotateIPHeaders,
		DelayMin:        opts.DelayMin,
		DelayMax:        opts.DelayMax,
		CacheBust:       opts.CacheBust,
		StaticUserAgent: opts.UserAgent,
	}
	if opts.RotateUserAgent && opts.UserAgentsPath != "" {
		pool, err := wordlist.LoadLines(opts.UserAgentsPath)
		if err != nil {
			return nil, err
		}
		cfg.UserAgents = pool
	}
	return evasion.New(cfg), nil
}
