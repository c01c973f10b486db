package catalog

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/harness/harnesstest"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
	"github.com/example/go-primparity/internal/testutil"
)

var groups = []string{
	GroupTypePromotion, GroupConcatenate, GroupUnaryElementwise, GroupBinaryElementwise,
	GroupAddMul, GroupMinMax, GroupBitwiseNot, GroupPopulationCount, GroupShiftLeft,
	GroupShiftRightLogical, GroupShiftRightArithmetic, GroupBetainc, GroupSlice,
	GroupDynamicSlice, GroupDynamicUpdateSlice, GroupPad, GroupSort, GroupTopK, GroupTake,
	GroupReduce, GroupCumulative, GroupSVD, GroupQR, GroupNextafter, GroupStopGradient,
	GroupClamp, GroupConvertElementType, GroupMatmul, GroupSelectN,
	GroupReduceWindow, GroupSelectAndGatherAdd, GroupScatter, GroupRandomSplit,
}

func newDriver(device string) *harness.Driver {
	return &harness.Driver{
		Engine:   harness.NewEngine(harness.WithModes(harness.DefaultModes(device, convert.Default)...)),
		Policies: Policies(),
		Device:   device,
		RNG:      harness.NewRNG(harness.DefaultSeed),
	}
}

func find(t *testing.T, group, name string) *harness.Harness {
	t.Helper()

	for _, h := range Group(group) {
		if h.Name() == name {
			return h
		}
	}

	t.Fatalf("no harness %s/%s", group, name)

	return nil
}

func TestGroupsAreNonEmpty(t *testing.T) {
	for _, g := range groups {
		assert.NotEmpty(t, Group(g), g)
	}

	seen := map[string]bool{}
	for _, h := range All() {
		assert.Contains(t, groups, h.Group())
		assert.False(t, seen[h.FullName()], "duplicate harness %s", h.FullName())
		seen[h.FullName()] = true
	}
}

func TestCaseName(t *testing.T) {
	assert.Equal(t, "add_float32_3x4", caseName("add", dtype.Float32, shape(3, 4)))
	assert.Equal(t, "sin_bfloat16_scalar_k_2", caseName("sin", dtype.BFloat16, shape(), "k", 2))
}

func TestTypePromotion(t *testing.T) {
	hs := Group(GroupTypePromotion)
	require.Len(t, hs, len(PromotionOps)*len(PromotionDTypes)*len(PromotionDTypes))

	results, err := newDriver("cpu").Run(context.Background(), hs, nil)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, harness.VerdictPass, r.Verdict, "%s: %v", r.Name, r.Err)
	}
}

func TestSVDThreeByThree(t *testing.T) {
	h := find(t, GroupSVD, "svd_float32_3x3_compute_uv_true_full_matrices_true")

	res := newDriver("cpu").RunCase(context.Background(), h)
	require.NoError(t, res.Err)
	assert.Equal(t, harness.VerdictPass, res.Verdict)
}

func TestDigammaPolesNeedComparator(t *testing.T) {
	h := find(t, GroupUnaryElementwise, "digamma_float32_5_poles")

	args, err := h.Args(harness.NewRNG(harness.DefaultSeed))
	require.NoError(t, err)

	src, err := lax.Call(h.Fn(), args...)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(src[0].Data()[0]))

	_, err = harness.NewEngine().Compare(context.Background(), h.Fn(), args)
	require.Error(t, err)
	assert.True(t, harness.IsKind(err, harness.KindNumericMismatch), "got %v", err)

	res := newDriver("cpu").RunCase(context.Background(), h)
	require.NoError(t, res.Err)
	assert.Equal(t, harness.VerdictPass, res.Verdict)
}

func TestPolicies(t *testing.T) {
	table := Policies()

	tests := []struct {
		group, name, device string
		want                harness.Policy
	}{
		{GroupUnaryElementwise, "erf_inv_bfloat16_2x3", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupUnaryElementwise, "sin_bfloat16_2x3", "cpu", harness.Proceed{}},
		{GroupUnaryElementwise, "sin_float32_2x3", "gpu", harness.Proceed{Atol: 1e-3}},
		{GroupSlice, "slice_float32_3_start_3_limit_3", "cpu", harness.ExpectSourceError{Kind: lax.ErrShape}},
		{GroupAddMul, "add_uint16_2x3", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupAddMul, "mul_uint16_2x3", "cpu", harness.Proceed{}},
		{GroupMinMax, "max_int16_2x3", "gpu", harness.Proceed{}},
		{GroupMinMax, "min_int8_2x3", "gpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupShiftRightLogical, "shift_right_logical_int8_4", "tpu", harness.Skip{Reason: "tpu shifts narrow integers at 32-bit width"}},
		{GroupShiftRightLogical, "shift_right_logical_int8_4", "cpu", harness.Proceed{}},
		{GroupNextafter, "nextafter_float16_3", "cpu", harness.ExpectSourceError{Kind: lax.ErrUnimplemented}},
		{GroupNextafter, "nextafter_float32_3", "cpu", harness.ExpectTargetError{Pattern: "'Nextafter'"}},
		{GroupDynamicSlice, "dynamic_slice_float32_5_start_4_sizes_3", "cpu", harness.ExpectTargetError{Pattern: "out of bounds"}},
		{GroupPad, "pad_int32_2x3_lo_0x-1_hi_0x0_interior_0x0", "cpu", harness.ExpectTargetError{Pattern: "negative padding"}},
		{GroupSort, "sort_float32_3x4_dim_1_stable_false_operands_1", "cpu", harness.Proceed{}},
		{GroupSort, "sort_bool_6_dim_0_stable_false_operands_2", "cpu", harness.ExpectTargetError{Pattern: "bool keys"}},
		{GroupTopK, "top_k_int32_3x5_k_6", "cpu", harness.ExpectSourceError{Kind: lax.ErrValue, Pattern: "k argument to top_k"}},
		{GroupReduce, "argmax_float32_3x4", "cpu", harness.ExpectTargetError{Pattern: "translation not implemented"}},
		{GroupQR, "qr_float32_2x4_full_matrices_false", "cpu", harness.ExpectSourceError{Kind: lax.ErrUnimplemented, Pattern: "more columns than rows"}},
		{GroupSelectAndGatherAdd, "select_and_gather_add_ge_float32_4x6_window_2x2", "cpu", harness.Proceed{}},
		{GroupSelectAndGatherAdd, "select_and_gather_add_ge_float32_4x6_window_2x2", "tpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupSelectAndGatherAdd, "select_and_gather_add_le_float16_4x6_window_2x2", "tpu", harness.Proceed{}},
		{GroupSelectAndGatherAdd, "select_and_gather_add_le_float64_4x6_window_2x2", "gpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupReduceWindow, "reduce_window_max_int8_4x6_window_2x2", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupReduceWindow, "reduce_window_add_int8_4x6_window_2x2", "cpu", harness.Proceed{}},
		{GroupReduceWindow, "reduce_window_add_uint16_4x6_window_2x2", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupReduceWindow, "reduce_window_mul_uint16_4x6_window_2x2", "cpu", harness.Proceed{}},
		{GroupReduceWindow, "reduce_window_mul_uint32_4x6_window_2x2", "gpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupScatter, "scatter_max_bool_5_axis_0_updates_3", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupScatter, "scatter_min_int16_5_axis_0_updates_3", "cpu", harness.Proceed{}},
		{GroupScatter, "scatter_add_uint16_5_axis_0_updates_3", "cpu", harness.ExpectTargetError{Pattern: noKernel}},
		{GroupScatter, "scatter_mul_uint16_5_axis_0_updates_3", "cpu", harness.Proceed{}},
		{GroupScatter, "scatter_mul_uint64_5_axis_0_updates_3", "tpu", harness.ExpectTargetError{Pattern: noKernel}},
	}

	for _, tt := range tests {
		t.Run(tt.group+"/"+tt.name+"/"+tt.device, func(t *testing.T) {
			got := table.Lookup(find(t, tt.group, tt.name), tt.device)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowScatterAndSplitGroups(t *testing.T) {
	for _, g := range []string{GroupReduceWindow, GroupSelectAndGatherAdd, GroupScatter, GroupRandomSplit} {
		for _, device := range []string{"cpu", "tpu"} {
			results, err := newDriver(device).Run(context.Background(), Group(g), nil)
			require.NoError(t, err)

			s := harness.Summarize(results)
			assert.Zero(t, s.Failed, "%s on %s: %+v", g, device, s)
		}
	}
}

func TestRandomSplitMatchesKeySplit(t *testing.T) {
	h := find(t, GroupRandomSplit, "random_split_key_0_42")

	args, err := h.Args(harness.NewRNG(harness.DefaultSeed))
	require.NoError(t, err)

	out, err := lax.Call(h.Fn(), args...)
	require.NoError(t, err)

	keys := lax.PRNGKey(42).Split(2)
	assert.Equal(t, []float64{float64(keys[0].Hi), float64(keys[0].Lo), float64(keys[1].Hi), float64(keys[1].Lo)}, out[0].Data())
}

func TestSVDPolicyUsesReconstruction(t *testing.T) {
	p, ok := Policies().Lookup(find(t, GroupSVD, "svd_float64_4x2_compute_uv_true_full_matrices_false"), "cpu").(harness.Proceed)
	require.True(t, ok)
	assert.True(t, p.AlwaysCustom)
	assert.NotNil(t, p.Comparator)
	assert.InDelta(t, 1e-4, p.Atol, 0)
}

func TestRunIsIdempotent(t *testing.T) {
	hs := Group(GroupBinaryElementwise)

	run := func() []harness.Result {
		results, err := newDriver("cpu").Run(context.Background(), hs, nil)
		require.NoError(t, err)

		for i := range results {
			results[i].Duration = 0
			results[i].Err = nil
		}

		return results
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestFixedArgsDrawNothing(t *testing.T) {
	r := harness.NewRNG(harness.DefaultSeed)

	args, err := find(t, GroupMinMax, "max_float32_nan").Args(r)
	require.NoError(t, err)
	require.Len(t, args, 2)

	got, err := r.Default(dtype.Float32, shape(2))
	require.NoError(t, err)

	want, err := harness.NewRNG(harness.DefaultSeed).Default(dtype.Float32, shape(2))
	require.NoError(t, err)
	assert.True(t, tensor.Equal(want, got))
}

func TestCatalog(t *testing.T) {
	testutil.RequireLong(t)

	for _, device := range []string{"cpu", "gpu", "tpu"} {
		t.Run(device, func(t *testing.T) {
			results := harnesstest.Run(t, newDriver(device), All())

			s := harness.Summarize(results)
			assert.Zero(t, s.Failed, "%+v", s)
			assert.Positive(t, s.Passed)
		})
	}
}
