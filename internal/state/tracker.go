package state

import "sync"

// Tracker is the single coordination point for scan progress. Candidates
// are dispatched in wordlist order but complete in arbitrary order, so
// the resumable offset is the contiguous-completion low-water mark: the
// highest index below which every candidate has been handled. Resuming
// from it can re-probe a few out-of-order completions but never skips
// work.
type Tracker struct {
	mu        sync.Mutex
	next      int64              // lowest index not yet contiguously complete
	ahead     map[int64]struct{} // completed indexes >= next
	processed int64
	accepted  int64
	failed    int64
}

// NewTracker starts tracking at the given offset, carrying forward counts
// from a resumed checkpoint.
func NewTracker(offset, processed, accepted, failed int64) *Tracker {
	return &Tracker{
		next:      offset,
		ahead:     make(map[int64]struct{}),
		processed: processed,
		accepted:  accepted,
		failed:    failed,
	}
}

// Complete records that the candidate at idx has been handled, whatever
// the accept/reject/error outcome was. Progress tracking is independent
// of filtering.
func (t *Tracker) Complete(idx int64, accepted, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	if accepted {
		t.accepted++
	}
	if failed {
		t.failed++
	}

	if idx < t.next {
		return
	}
	t.ahead[idx] = struct{}{}
	for {
		if _, ok := t.ahead[t.next]; !ok {
			break
		}
		delete(t.ahead, t.next)
		t.next++
	}
}

// Offset returns the current resumable offset.
func (t *Tracker) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

// Counts returns the processed/accepted/failed totals.
func (t *Tracker) Counts() (processed, accepted, failed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.accepted, t.failed
}

// Snapshot fills a checkpoint with the current offset and counts.
func (t *Tracker) Snapshot(cp *Checkpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp.Offset = t.next
	cp.Processed = t.processed
	cp.Accepted = t.accepted
	cp.Failed = t.failed
}
