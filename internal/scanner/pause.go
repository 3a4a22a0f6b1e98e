package scanner

import "sync"

// Pauser is a cooperative pause gate for worker goroutines. While paused,
// Wait blocks; otherwise it is a cheap lock/check/unlock.
type Pauser struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
}

// NewPauser creates a Pauser in the running state.
func NewPauser() *Pauser {
	p := &Pauser{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Wait blocks the caller while the scan is paused.
func (p *Pauser) Wait() {
	p.mu.Lock()
	for p.paused {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Toggle flips between paused and running. Returns the new state
// (true = now paused).
func (p *Pauser) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		p.cond.Broadcast()
	} else {
		p.paused = true
	}
	return p.paused
}

// IsPaused reports whether the scan is currently paused.
func (p *Pauser) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
