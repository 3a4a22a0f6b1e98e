package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dirblast/dirblast/internal/evasion"
	"github.com/dirblast/dirblast/internal/wordlist"
)

// PoolConfig holds options for the worker pool.
type PoolConfig struct {
	Workers int
	Policy  *evasion.Policy
	Backoff *Backoff
	Pauser  *Pauser // nil = no pause support
}

// RunPool fans candidates out across workers and returns a channel of
// results, closed once every dispatched candidate has been handled.
//
// Each worker pulls the next candidate straight from the source (the
// source cursor is the single synchronization point, so no candidate is
// dispatched twice), sleeps the evasion delay, probes, and reports the
// outcome. On cancellation workers stop pulling new candidates but let
// the in-flight request finish; the request is bounded by the client
// timeout rather than the scan context.
func RunPool(ctx context.Context, prober Prober, src *wordlist.Source, cfg PoolConfig) <-chan Result {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make(chan Result, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, prober, src, cfg, results)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func runWorker(ctx context.Context, prober Prober, src *wordlist.Source, cfg PoolConfig, results chan<- Result) {
	for {
		if ctx.Err() != nil {
			return
		}
		if cfg.Pauser != nil {
			cfg.Pauser.Wait()
		}

		cand, err := src.Next()
		if err != nil {
			if !errors.Is(err, wordlist.ErrEndOfInput) {
				results <- Result{Candidate: wordlist.Candidate{Index: -1}, Err: err}
			}
			return
		}

		delay := cfg.Policy.Delay()
		if cfg.Backoff != nil {
			delay += cfg.Backoff.Extra()
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				// The candidate was dispatched; probe it anyway so the
				// completion count stays consistent with dispatch.
			}
		}

		path := cfg.Policy.DecoratePath(cand.Path)
		resp, err := prober.Do(context.WithoutCancel(ctx), path, cfg.Policy.Headers())
		if err != nil {
			if cfg.Backoff != nil {
				cfg.Backoff.RecordError()
			}
			results <- Result{Candidate: cand, Err: err}
			continue
		}

		if cfg.Backoff != nil {
			cfg.Backoff.RecordStatus(resp.StatusCode)
		}
		results <- Result{Candidate: cand, Response: resp}
	}
}
