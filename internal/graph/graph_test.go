package graph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func f32(shape ...int64) Type { return Type{DType: dtype.Float32, Shape: shape} }

func run(t *testing.T, g *Graph, device string, inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	t.Helper()

	return NewEvaluator(device).Execute(context.Background(), g, inputs)
}

// unary builds x -> op(x) for a float32 vector of length n.
func unary(t *testing.T, op string, dt dtype.DType, n int64) *Graph {
	t.Helper()

	b := NewBuilder(op)
	x := b.Parameter(Type{DType: dt, Shape: []int64{n}})

	y, err := b.Op(op, nil, x)
	require.NoError(t, err)

	g, err := b.Build(y)
	require.NoError(t, err)

	return g
}

func TestBuilderInfersTypes(t *testing.T) {
	b := NewBuilder("infer")
	x := b.Parameter(f32(2, 3))
	y := b.Parameter(f32(3))

	sum, err := b.Op(OpAdd, nil, x, y)
	require.NoError(t, err)
	assert.Equal(t, f32(2, 3), sum.Type())

	lt, err := b.Op(OpLess, nil, x, y)
	require.NoError(t, err)
	assert.Equal(t, dtype.Bool, lt.DType())

	red, err := b.Op(OpReduceSum, Attrs{AttrAxes: []int64{1}}, x)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, red.Shape())

	_, err = b.Op(OpAdd, nil, x, b.Parameter(Type{DType: dtype.Int32, Shape: []int64{3}}))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.Op("NoSuchOp", nil, x)
	require.Error(t, err)

	g, err := b.Build(sum)
	require.NoError(t, err)
	assert.Len(t, g.Parameters(), 3)
	assert.Equal(t, []Type{f32(2, 3)}, g.OutputTypes())
	assert.Contains(t, g.String(), "Add(%0, %1)")

	_, err = b.Op(OpNeg, nil, x)
	require.Error(t, err, "finished builder must reject ops")
}

func TestBuilderRejectsForeignNodes(t *testing.T) {
	other := NewBuilder("other").Parameter(f32(1))

	b := NewBuilder("mine")
	_, err := b.Op(OpNeg, nil, other)
	require.Error(t, err)
}

func TestTupleOutputs(t *testing.T) {
	b := NewBuilder("topk")
	x := b.Parameter(f32(4))

	outs, err := b.MultiOp(OpTopK, Attrs{AttrK: int64(2)}, x)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, OpTupleElement, outs[0].Op())
	assert.Equal(t, dtype.Int32, outs[1].DType())

	_, err = b.Op(OpTopK, Attrs{AttrK: int64(2)}, x)
	require.Error(t, err, "Op must refuse multi-output ops")

	g, err := b.Build(outs...)
	require.NoError(t, err)

	res, err := run(t, g, "cpu", tensor.MustNew(dtype.Float32, []float64{1, 4, math.NaN(), 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 3}, res[0].Data())
	assert.Equal(t, []float64{1, 3}, res[1].Data())

	kb := NewBuilder("k")
	_, err = kb.MultiOp(OpTopK, Attrs{AttrK: int64(5)}, kb.Parameter(f32(4)))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestKernelConventions(t *testing.T) {
	t.Run("digamma poles", func(t *testing.T) {
		res, err := run(t, unary(t, OpDigamma, dtype.Float32, 2), "cpu", tensor.MustNew(dtype.Float32, []float64{0, -1}))
		require.NoError(t, err)
		assert.True(t, math.IsInf(res[0].Data()[0], 1))
		assert.True(t, math.IsInf(res[0].Data()[1], 1))

		res, err = run(t, unary(t, OpDigamma, dtype.BFloat16, 1), "tpu", tensor.MustNew(dtype.BFloat16, []float64{0}))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(res[0].Data()[0]))
	})

	t.Run("erfinv out of domain", func(t *testing.T) {
		res, err := run(t, unary(t, OpErfinv, dtype.Float32, 3), "cpu", tensor.MustNew(dtype.Float32, []float64{-2, 0, 2}))
		require.NoError(t, err)

		got := res[0].Data()
		assert.True(t, math.IsInf(got[0], -1))
		assert.Equal(t, 0.0, got[1])
		assert.True(t, math.IsInf(got[2], 1))
	})

	t.Run("incomplete gamma", func(t *testing.T) {
		for _, tc := range []struct {
			op     string
			a, x   float64
			expect func(float64) bool
		}{
			{OpIgamma, 0, 0, func(v float64) bool { return v == 0 }},
			{OpIgammac, 0, 1, math.IsNaN},
			{OpIgammac, 1, -1, math.IsNaN},
		} {
			b := NewBuilder(tc.op)
			a := b.Parameter(f32(1))
			x := b.Parameter(f32(1))
			y, err := b.Op(tc.op, nil, a, x)
			require.NoError(t, err)
			g, err := b.Build(y)
			require.NoError(t, err)

			res, err := run(t, g, "cpu", tensor.MustNew(dtype.Float32, []float64{tc.a}), tensor.MustNew(dtype.Float32, []float64{tc.x}))
			require.NoError(t, err)
			assert.True(t, tc.expect(res[0].Data()[0]), "%s(%v, %v) = %v", tc.op, tc.a, tc.x, res[0].Data()[0])
		}
	})

	t.Run("integer division truncates", func(t *testing.T) {
		b := NewBuilder("div")
		x := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{3}})
		y := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{3}})
		q, err := b.Op(OpDiv, nil, x, y)
		require.NoError(t, err)
		g, err := b.Build(q)
		require.NoError(t, err)

		res, err := run(t, g, "cpu",
			tensor.MustNew(dtype.Int32, []float64{7, -7, 5}),
			tensor.MustNew(dtype.Int32, []float64{2, 2, 0}))
		require.NoError(t, err)
		assert.Equal(t, []float64{3, -3, 0}, res[0].Data())
	})
}

func TestSvdFactorsReconstruct(t *testing.T) {
	b := NewBuilder("svd")
	x := b.Parameter(f32(2, 2))
	outs, err := b.MultiOp(OpSvd, Attrs{AttrComputeUV: true}, x)
	require.NoError(t, err)
	g, err := b.Build(outs...)
	require.NoError(t, err)

	in := tensor.MustNew(dtype.Float32, []float64{3, 1, 1, 2}, 2, 2)
	res, err := run(t, g, "cpu", in)
	require.NoError(t, err)

	s, u, vt := res[0].Data(), res[1].Data(), res[2].Data()
	assert.GreaterOrEqual(t, s[0], s[1])

	for i := range 2 {
		for j := range 2 {
			var v float64
			for k := range 2 {
				v += u[i*2+k] * s[k] * vt[k*2+j]
			}

			assert.InDelta(t, in.Data()[i*2+j], v, 1e-5)
		}
	}
}

func TestSortNaNFirst(t *testing.T) {
	b := NewBuilder("sort")
	x := b.Parameter(f32(4))
	outs, err := b.MultiOp(OpSort, nil, x)
	require.NoError(t, err)
	g, err := b.Build(outs...)
	require.NoError(t, err)

	res, err := run(t, g, "cpu", tensor.MustNew(dtype.Float32, []float64{2, math.NaN(), -1, 0}))
	require.NoError(t, err)

	got := res[0].Data()
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{-1, 0, 2}, got[1:])
}

func TestUnsupportedKernels(t *testing.T) {
	assert.False(t, Supported(OpAdd, dtype.Uint32, "cpu"))
	assert.True(t, Supported(OpAdd, dtype.Int32, "cpu"))
	assert.False(t, Supported(OpRound, dtype.BFloat16, "gpu"))
	assert.True(t, Supported(OpRound, dtype.BFloat16, "tpu"))
	assert.False(t, Supported(OpSvd, dtype.Float16, "tpu"))
	assert.True(t, Supported(OpSvd, dtype.Float16, "cpu"))

	b := NewBuilder("popcnt")
	x := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{2}})
	y, err := b.Op(OpPopulationCount, nil, x)
	require.NoError(t, err, "graph construction succeeds without a kernel")
	g, err := b.Build(y)
	require.NoError(t, err)

	_, err = run(t, g, "cpu", tensor.MustNew(dtype.Int32, []float64{1, 3}))
	require.ErrorIs(t, err, ErrNoKernel)

	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, OpPopulationCount, unsupported.Op)
	assert.Contains(t, err.Error(), "no registered 'PopulationCount' kernel")
}

func TestUnsupportedSortConfigurations(t *testing.T) {
	for name, tc := range map[string]struct {
		types []Type
		attrs Attrs
	}{
		"stable":       {types: []Type{f32(3)}, attrs: Attrs{AttrStable: true}},
		"leading axis": {types: []Type{f32(2, 3)}, attrs: Attrs{AttrAxis: int64(0)}},
		"three operands": {
			types: []Type{f32(3), f32(3), f32(3)},
		},
		"bool keys": {types: []Type{{DType: dtype.Bool, Shape: []int64{3}}, f32(3)}},
	} {
		t.Run(name, func(t *testing.T) {
			b := NewBuilder("sort")
			params := make([]*Node, len(tc.types))
			inputs := make([]*tensor.Tensor, len(tc.types))

			for i, ty := range tc.types {
				params[i] = b.Parameter(ty)
				z, err := tensor.Zeros(ty.DType, ty.Shape)
				require.NoError(t, err)
				inputs[i] = z
			}

			outs, err := b.MultiOp(OpSort, tc.attrs, params...)
			require.NoError(t, err)
			g, err := b.Build(outs[0])
			require.NoError(t, err)

			_, err = run(t, g, "cpu", inputs...)
			require.ErrorIs(t, err, ErrNoKernel)
		})
	}
}

func TestShapeOpErrors(t *testing.T) {
	t.Run("negative pad", func(t *testing.T) {
		b := NewBuilder("pad")
		x := b.Parameter(f32(3))
		v := b.Constant(tensor.Scalar(dtype.Float32, 0))
		_, err := b.Op(OpPad, Attrs{AttrLo: []int64{-1}, AttrHi: []int64{0}, AttrInterior: []int64{0}}, x, v)
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.Contains(t, err.Error(), "negative padding")
	})

	t.Run("dynamic slice out of bounds", func(t *testing.T) {
		b := NewBuilder("ds")
		x := b.Parameter(f32(4))
		i := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{}})
		y, err := b.Op(OpDynamicSlice, Attrs{AttrSizes: []int64{2}}, x, i)
		require.NoError(t, err)
		g, err := b.Build(y)
		require.NoError(t, err)

		xs := tensor.MustNew(dtype.Float32, []float64{0, 1, 2, 3})

		res, err := run(t, g, "cpu", xs, tensor.Scalar(dtype.Int32, 1))
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, res[0].Data())

		_, err = run(t, g, "cpu", xs, tensor.Scalar(dtype.Int32, 3))
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("gather out of range", func(t *testing.T) {
		b := NewBuilder("gather")
		x := b.Parameter(f32(3))
		idx := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{2}})
		y, err := b.Op(OpGather, Attrs{AttrAxis: int64(0)}, x, idx)
		require.NoError(t, err)
		g, err := b.Build(y)
		require.NoError(t, err)

		xs := tensor.MustNew(dtype.Float32, []float64{10, 20, 30})

		res, err := run(t, g, "cpu", xs, tensor.MustNew(dtype.Int32, []float64{2, 0}))
		require.NoError(t, err)
		assert.Equal(t, []float64{30, 10}, res[0].Data())

		_, err = run(t, g, "cpu", xs, tensor.MustNew(dtype.Int32, []float64{3, 0}))
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestExecuteValidatesInputs(t *testing.T) {
	g := unary(t, OpNeg, dtype.Float32, 2)

	_, err := run(t, g, "cpu")
	require.Error(t, err)

	_, err = run(t, g, "cpu", tensor.MustNew(dtype.Int32, []float64{1, 2}))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewEvaluator("cpu").Execute(ctx, g, []*tensor.Tensor{tensor.MustNew(dtype.Float32, []float64{1, 2})})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptimize(t *testing.T) {
	b := NewBuilder("opt")
	x := b.Parameter(f32(2))
	_ = b.Parameter(f32(2))

	c1 := b.Constant(tensor.MustNew(dtype.Float32, []float64{1, 2}))
	c2 := b.Constant(tensor.MustNew(dtype.Float32, []float64{1, 2}))
	folded, err := b.Op(OpAdd, nil, c1, c2)
	require.NoError(t, err)

	a1, err := b.Op(OpMul, nil, x, folded)
	require.NoError(t, err)
	a2, err := b.Op(OpMul, nil, x, folded)
	require.NoError(t, err)

	_, err = b.Op(OpExp, nil, x) // dead
	require.NoError(t, err)

	out, err := b.Op(OpSub, nil, a1, a2)
	require.NoError(t, err)

	g, err := b.Build(out)
	require.NoError(t, err)

	og, stats, err := Optimize(g, "cpu")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Folded)
	assert.Equal(t, 2, stats.Deduplicated)
	assert.Equal(t, 1, stats.Removed)
	assert.Len(t, og.Parameters(), 2, "parameters are kept even when unused")
	assert.Zero(t, og.Ops()[OpExp])
	assert.Equal(t, 1, og.Ops()[OpMul])

	in := []*tensor.Tensor{
		tensor.MustNew(dtype.Float32, []float64{3, 4}),
		tensor.MustNew(dtype.Float32, []float64{0, 0}),
	}

	want, err := run(t, g, "cpu", in...)
	require.NoError(t, err)
	got, err := run(t, og, "cpu", in...)
	require.NoError(t, err)
	assert.Equal(t, want[0].Data(), got[0].Data())
}

func TestOptimizeKeepsFailingNodes(t *testing.T) {
	b := NewBuilder("keep")
	_ = b.Parameter(f32(1))
	c := b.Constant(tensor.MustNew(dtype.Uint32, []float64{1}))
	y, err := b.Op(OpAdd, nil, c, c)
	require.NoError(t, err)
	g, err := b.Build(y)
	require.NoError(t, err)

	og, stats, err := Optimize(g, "cpu")
	require.NoError(t, err)
	assert.Zero(t, stats.Folded)
	assert.Equal(t, 1, og.Ops()[OpAdd])

	_, err = run(t, og, "cpu", tensor.MustNew(dtype.Float32, []float64{0}))
	require.ErrorIs(t, err, ErrNoKernel)
}

func TestOpNamesSorted(t *testing.T) {
	names := OpNames()
	assert.Contains(t, names, OpSvd)
	assert.NotContains(t, names, OpParameter)
	assert.IsIncreasing(t, names)
}
