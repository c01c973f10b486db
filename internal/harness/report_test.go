package harness

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []Result {
	return []Result{
		{Group: "add_mul", Name: "add_int32", Verdict: VerdictPass},
		{Group: "add_mul", Name: "mul_float32", Verdict: VerdictPass},
		{Group: "add_mul", Name: "add_bfloat16", Verdict: VerdictExpectedDivergence, Reason: "no bf16 kernel"},
		{Group: "unary_elementwise", Name: "erf_inv_tpu", Verdict: VerdictSkip},
		{Group: "unary_elementwise", Name: "erf_bad", Verdict: VerdictFail, Error: "boom"},
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{Total: 5, Passed: 2, Expected: 1, Skipped: 1, Failed: 1}, Summarize(sampleResults()))
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestReportWriteText(t *testing.T) {
	r := NewReport("cpu", "graph", DefaultSeed, time.Unix(0, 0), sampleResults())

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "report_text", buf.Bytes())
}

func TestReportRoundTrip(t *testing.T) {
	r := NewReport("cpu", "onnx", DefaultSeed, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), sampleResults())
	require.NotEmpty(t, r.RunID)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveReport(path, r))

	got, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	require.Len(t, got.Failures(), 1)
	assert.Equal(t, "erf_bad", got.Failures()[0].Name)

	_, err = LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
