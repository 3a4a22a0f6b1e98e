// Package wildcard detects server-generated catch-all responses. Servers
// that answer every unknown path with the same page (often a custom 404
// served with HTTP 200) would otherwise turn the whole wordlist into
// false positives. Before the scan starts a profile is built from probes
// against paths that are virtually guaranteed not to exist; outcomes
// matching the profile are classified as noise.
package wildcard

import (
	"context"
	"math/rand"
	"net/http"

	"github.com/dirblast/dirblast/internal/evasion"
	"github.com/dirblast/dirblast/internal/scanner"
)

// DefaultTolerance is the content-length fuzz window in bytes. Catch-all
// pages often embed the requested path, so lengths vary slightly between
// probes; 50 bytes absorbs that while still separating real content.
// Exposed as a tunable because it is a heuristic, not a contract.
const DefaultTolerance int64 = 50

// probeCount is how many nonsense paths are probed for the baseline.
const probeCount = 4

// entry is one reference outcome from a baseline probe.
type entry struct {
	statusCode    int
	contentLength int64
	signature     uint64
}

// Profile is the reference signature set gathered before the main scan.
// An empty profile never matches, so detection silently disables when all
// baseline probes fail.
type Profile struct {
	entries   []entry
	tolerance int64
}

// Build probes a handful of random nonexistent paths through the same
// prober and evasion policy as the real scan and records their outcomes.
// Transport failures are skipped rather than aborting the scan.
func Build(ctx context.Context, prober scanner.Prober, policy *evasion.Policy, tolerance int64) *Profile {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	p := &Profile{tolerance: tolerance}

	for _, path := range probePaths(probeCount) {
		var overrides http.Header
		if policy != nil {
			overrides = policy.Headers()
		}
		resp, err := prober.Do(ctx, path, overrides)
		if err != nil {
			continue
		}
		p.add(resp)
	}
	return p
}

func (p *Profile) add(resp *scanner.Response) {
	p.entries = append(p.entries, entry{
		statusCode:    resp.StatusCode,
		contentLength: resp.ContentLength,
		signature:     resp.Signature,
	})
}

// Matches classifies an outcome as wildcard noise if any profile entry
// has the same status code and either an identical body signature or a
// content length within the tolerance window.
func (p *Profile) Matches(resp *scanner.Response) bool {
	for _, e := range p.entries {
		if resp.StatusCode != e.statusCode {
			continue
		}
		if resp.Signature == e.signature {
			return true
		}
		if abs64(resp.ContentLength-e.contentLength) <= p.tolerance {
			return true
		}
	}
	return false
}

// Size returns the number of reference entries in the profile.
func (p *Profile) Size() int {
	return len(p.entries)
}

// probePaths generates random alphanumeric paths that are extremely
// unlikely to exist, some with a random extension to also trip
// extension-specific handlers.
func probePaths(n int) []string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	exts := []string{"", "", ".html", ".php"}

	paths := make([]string, n)
	for i := range paths {
		buf := make([]byte, 16)
		for j := range buf {
			buf[j] = alphabet[rand.Intn(len(alphabet))]
		}
		paths[i] = string(buf) + exts[i%len(exts)]
	}
	return paths
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
