// Package harnesstest runs harness descriptors as Go subtests.
package harnesstest

import (
	"context"
	"testing"

	"github.com/example/go-primparity/internal/harness"
)

// Run runs every harness as a subtest named by its full name. Skipped cases
// call t.Skip and failed ones t.Error; the results are returned in order.
func Run(t *testing.T, d *harness.Driver, hs []*harness.Harness) []harness.Result {
	t.Helper()

	results := make([]harness.Result, 0, len(hs))

	for _, h := range hs {
		t.Run(h.FullName(), func(t *testing.T) {
			r := d.RunCase(context.Background(), h)
			results = append(results, r)

			switch r.Verdict {
			case harness.VerdictSkip:
				t.Skip(r.Reason)
			case harness.VerdictFail:
				t.Errorf("%s: %v", r.Policy, r.Err)
			case harness.VerdictExpectedDivergence:
				t.Logf("expected divergence: %s", r.Reason)
			}
		})
	}

	return results
}
