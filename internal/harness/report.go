package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/example/go-primparity/internal/lax"
)

// Summary counts verdicts.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Expected int `json:"expected_divergence"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}

	for _, r := range results {
		switch r.Verdict {
		case VerdictPass:
			s.Passed++
		case VerdictExpectedDivergence:
			s.Expected++
		case VerdictSkip:
			s.Skipped++
		case VerdictFail:
			s.Failed++
		}
	}

	return s
}

// Report is the persisted record of one run.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Device    string    `json:"device"`
	Backend   string    `json:"backend"`
	Seed      lax.Key   `json:"seed"`
	Results   []Result  `json:"results"`
	Summary   Summary   `json:"summary"`
}

func NewReport(device, backend string, seed lax.Key, startedAt time.Time, results []Result) Report {
	return Report{
		RunID:     uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Device:    device,
		Backend:   backend,
		Seed:      seed,
		Results:   results,
		Summary:   Summarize(results),
	}
}

// Failures returns the failed results.
func (r Report) Failures() []Result {
	var out []Result

	for _, res := range r.Results {
		if res.Verdict == VerdictFail {
			out = append(out, res)
		}
	}

	return out
}

// WriteText writes a per-group table of verdict counts followed by the
// failures. Durations and the run id are left out so the output is stable.
func (r Report) WriteText(w io.Writer) error {
	groups := map[string]*Summary{}

	for _, res := range r.Results {
		s, ok := groups[res.Group]
		if !ok {
			s = &Summary{}
			groups[res.Group] = s
		}

		*s = addResult(*s, res)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}

	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "device %s, backend %s, seed %s\n", r.Device, r.Backend, r.Seed)
	fmt.Fprintln(tw, "GROUP\tTOTAL\tPASS\tEXPECTED\tSKIP\tFAIL")

	for _, g := range names {
		s := groups[g]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", g, s.Total, s.Passed, s.Expected, s.Skipped, s.Failed)
	}

	t := r.Summary
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", "all", t.Total, t.Passed, t.Expected, t.Skipped, t.Failed)

	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range r.Failures() {
		if _, err := fmt.Fprintf(w, "FAIL %s/%s: %s\n", f.Group, f.Name, f.Error); err != nil {
			return err
		}
	}

	return nil
}

func addResult(s Summary, r Result) Summary {
	next := Summarize([]Result{r})

	return Summary{
		Total:    s.Total + next.Total,
		Passed:   s.Passed + next.Passed,
		Expected: s.Expected + next.Expected,
		Skipped:  s.Skipped + next.Skipped,
		Failed:   s.Failed + next.Failed,
	}
}

func SaveReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("harness: marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("harness: write report: %w", err)
	}

	return nil
}

func LoadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("harness: read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("harness: decode report: %w", err)
	}

	return r, nil
}
