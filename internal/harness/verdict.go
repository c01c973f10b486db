package harness

import "fmt"

// Verdict is the outcome of one case.
type Verdict int

const (
	VerdictPass Verdict = iota
	// VerdictExpectedDivergence records a documented failure that happened
	// as expected.
	VerdictExpectedDivergence
	VerdictSkip
	VerdictFail
)

var verdictNames = [...]string{"pass", "expected_divergence", "skip", "fail"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return fmt.Sprintf("verdict(%d)", int(v))
	}

	return verdictNames[v]
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(b []byte) error {
	for i, name := range verdictNames {
		if name == string(b) {
			*v = Verdict(i)
			return nil
		}
	}

	return fmt.Errorf("harness: unknown verdict %q", b)
}
