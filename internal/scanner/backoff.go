package scanner

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Backoff tracks a global extra delay applied on top of the evasion
// policy's per-request delay. Rate-limit signals (429/503) grow the
// delay; healthy responses decay it back toward zero.
type Backoff struct {
	mu          sync.Mutex
	extra       time.Duration
	maxExtra    time.Duration
	consecutive int // consecutive throttle signals
	enabled     bool
	quiet       bool
}

// NewBackoff creates an adaptive backoff. When disabled, Extra always
// returns zero.
func NewBackoff(enabled, quiet bool) *Backoff {
	return &Backoff{
		maxExtra: 30 * time.Second,
		enabled:  enabled,
		quiet:    quiet,
	}
}

// Extra returns the current global extra delay.
func (b *Backoff) Extra() time.Duration {
	if !b.enabled {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extra
}

// RecordStatus updates the backoff from a response status code.
func (b *Backoff) RecordStatus(statusCode int) {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if statusCode == 429 || statusCode == 503 {
		b.consecutive++
		b.grow(statusCode)
		return
	}

	if b.consecutive > 0 {
		b.consecutive = 0
	}
	if b.extra > 0 {
		b.extra /= 2
		if b.extra < 10*time.Millisecond {
			b.extra = 0
		}
	}
}

// RecordError flags a transport failure as a possible rate-limit signal.
// Three in a row trigger a backoff step.
func (b *Backoff) RecordError() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= 3 {
		b.grow(0)
	}
}

func (b *Backoff) grow(statusCode int) {
	newExtra := b.extra * 2
	if newExtra < 500*time.Millisecond {
		newExtra = 500 * time.Millisecond
	}
	if newExtra > b.maxExtra {
		newExtra = b.maxExtra
	}
	if newExtra == b.extra {
		return
	}
	b.extra = newExtra
	if !b.quiet {
		if statusCode > 0 {
			fmt.Fprintf(os.Stderr, "\n[!] Rate limited (HTTP %d) - backing off %s/req\n", statusCode, b.extra)
		} else {
			fmt.Fprintf(os.Stderr, "\n[!] Repeated errors - backing off %s/req\n", b.extra)
		}
	}
}
