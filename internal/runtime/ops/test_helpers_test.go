package ops

import (
	"math"
	"strings"
	"testing"
)

func equalApprox(got, want []float64, tol float64) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if math.IsNaN(got[i]) || math.IsNaN(want[i]) {
			if math.IsNaN(got[i]) != math.IsNaN(want[i]) {
				return false
			}

			continue
		}

		if math.Abs(got[i]-want[i]) > tol {
			return false
		}
	}

	return true
}

func assertErrContains(t *testing.T, err error, substr string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", substr)
	}

	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("error %q does not contain %q", err.Error(), substr)
	}
}
