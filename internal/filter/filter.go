// Package filter decides which probe outcomes survive into the results.
// The chain is fixed for the session and evaluated independently per
// outcome, with no cross-outcome state.
package filter

import "github.com/dirblast/dirblast/internal/scanner"

// Filter rejects results matching one criterion.
type Filter interface {
	Name() string
	Reject(result *scanner.Result) bool
}

// Chain applies filters in order, short-circuiting on the first rejection.
type Chain struct {
	filters []Filter
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Accept runs every filter against the result. Returns false and the
// rejecting filter's name if the result should be dropped.
func (c *Chain) Accept(result *scanner.Result) (bool, string) {
	for _, f := range c.filters {
		if f.Reject(result) {
			return false, f.Name()
		}
	}
	return true, ""
}
