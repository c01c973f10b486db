package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
)

const overridesYAML = `
overrides:
  - group: unary_elementwise
    name: "^erf_inv_"
    device: TPU
    action: Skip
    reason: flaky on tpu
  - group: linear_algebra
    action: expect_source_error
    kind: value
    pattern: "full_matrices"
  - name: population_count
    action: expect_target_error
    pattern: PopulationCount
  - dtype: bfloat16
    action: expect_target_error_normal_source
    reason: no bf16 kernel
  - group: reductions
    action: proceed
    atol: 0.01
    rtol: 0.001
`

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]byte(overridesYAML))
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, ActionSkip, got[0].Action)
	assert.Equal(t, Skip{Reason: "flaky on tpu"}, got[0].Policy())
	assert.Equal(t, ExpectSourceError{Kind: lax.ErrValue, Pattern: "full_matrices"}, got[1].Policy())
	assert.Equal(t, ExpectTargetError{Pattern: "PopulationCount"}, got[2].Policy())
	assert.Equal(t, ExpectTargetErrorWithNormalSourceResult{Reason: "no bf16 kernel"}, got[3].Policy())
	assert.Equal(t, Proceed{Atol: 0.01, Rtol: 0.001}, got[4].Policy())
}

func TestParseOverridesRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"action":  "overrides:\n  - action: explode\n",
		"kind":    "overrides:\n  - action: expect_source_error\n    kind: syntax\n",
		"name":    "overrides:\n  - name: \"(\"\n    action: skip\n",
		"pattern": "overrides:\n  - action: expect_target_error\n    pattern: \"[\"\n",
		"yaml":    "overrides: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOverrides([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestOverrideMatches(t *testing.T) {
	overrides, err := ParseOverrides([]byte(overridesYAML))
	require.NoError(t, err)

	erfInv := New("unary_elementwise", "erf_inv_float32", nil, nil, lax.Params{"dtype": dtype.Float32})
	bf16 := New("binary_elementwise", "add_bfloat16", nil, nil, lax.Params{"dtype": dtype.BFloat16})

	assert.True(t, overrides[0].Matches(erfInv, "tpu"))
	assert.False(t, overrides[0].Matches(erfInv, "cpu"))
	assert.False(t, overrides[1].Matches(erfInv, "tpu"))
	assert.True(t, overrides[3].Matches(bf16, "cpu"))
	assert.False(t, overrides[3].Matches(erfInv, "cpu"))

	// Overrides built in code compile their name lazily.
	o := Override{Name: "^add_", Action: ActionSkip}
	assert.True(t, o.Matches(bf16, "cpu"))
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overridesYAML), 0o600))

	got, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
