package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func TestReduceWindowOps(t *testing.T) {
	x := tensor.MustNew(dtype.Int32, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	attrs := Attrs{AttrWindow: []int64{2, 2}, AttrLo: []int64{0, 0}, AttrHi: []int64{0, 1}}

	for op, want := range map[string][]float64{
		OpReduceWindowSum:  {12, 16, 9},
		OpReduceWindowProd: {40, 180, 18},
		OpReduceWindowMax:  {5, 6, 6},
		OpReduceWindowMin:  {1, 2, 3},
	} {
		t.Run(op, func(t *testing.T) {
			b := NewBuilder(op)
			p := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{2, 3}})

			y, err := b.Op(op, attrs, p)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 3}, y.Shape())

			g, err := b.Build(y)
			require.NoError(t, err)

			res, err := run(t, g, "cpu", x)
			require.NoError(t, err)
			assert.Equal(t, want, res[0].Data())
		})
	}

	b := NewBuilder("bad")
	p := b.Parameter(f32(3))
	_, err := b.Op(OpReduceWindowSum, Attrs{AttrWindow: []int64{2, 2}}, p)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWindowKernelGaps(t *testing.T) {
	assert.False(t, Supported(OpReduceWindowMax, dtype.Int8, "cpu"))
	assert.True(t, Supported(OpReduceWindowSum, dtype.Int8, "cpu"))
	assert.False(t, Supported(OpReduceWindowSum, dtype.Uint16, "gpu"))
	assert.True(t, Supported(OpReduceWindowProd, dtype.Uint16, "gpu"))
	assert.False(t, Supported(OpScatterMul, dtype.Uint32, "tpu"))
	assert.False(t, Supported(OpScatterMin, dtype.Bool, "cpu"))
	assert.True(t, Supported(OpScatterMin, dtype.Int16, "cpu"))
}

func TestSelectAndGatherAddPacking(t *testing.T) {
	build := func(dt dtype.DType) *Graph {
		b := NewBuilder("select_and_gather_add")
		ty := Type{DType: dt, Shape: []int64{4}}

		y, err := b.Op(OpSelectAndGatherAdd, Attrs{AttrWindow: []int64{2}, AttrStrides: []int64{2}, AttrSelect: "ge"},
			b.Parameter(ty), b.Parameter(ty))
		require.NoError(t, err)

		g, err := b.Build(y)
		require.NoError(t, err)

		return g
	}

	for _, tc := range []struct {
		dt     dtype.DType
		device string
		ok     bool
	}{
		{dtype.Float32, "cpu", true},
		{dtype.Float64, "cpu", false},
		{dtype.Float16, "tpu", true},
		{dtype.BFloat16, "tpu", true},
		{dtype.Float32, "tpu", false},
	} {
		tangents := tensor.MustNew(tc.dt, []float64{1, 2, 3, 4})
		operand := tensor.MustNew(tc.dt, []float64{0, -1, 5, 2})

		res, err := run(t, build(tc.dt), tc.device, tangents, operand)
		if !tc.ok {
			var unsupported *UnsupportedError
			require.True(t, errors.As(err, &unsupported), "%s on %s: %v", tc.dt, tc.device, err)
			assert.Contains(t, err.Error(), "no registered 'SelectAndGatherAdd' kernel")

			continue
		}

		require.NoError(t, err, "%s on %s", tc.dt, tc.device)
		assert.Equal(t, []float64{1, 3}, res[0].Data())
	}
}

func TestScatterOps(t *testing.T) {
	b := NewBuilder("scatter")
	x := b.Parameter(Type{DType: dtype.Float32, Shape: []int64{2, 3}})
	idx := b.Parameter(Type{DType: dtype.Int32, Shape: []int64{2}})
	upd := b.Parameter(Type{DType: dtype.Float32, Shape: []int64{2, 2}})

	y, err := b.Op(OpScatterAdd, Attrs{AttrAxis: int64(1)}, x, idx, upd)
	require.NoError(t, err)

	g, err := b.Build(y)
	require.NoError(t, err)

	res, err := run(t, g, "cpu",
		tensor.MustNew(dtype.Float32, []float64{1, 2, 3, 4, 5, 6}, 2, 3),
		tensor.MustNew(dtype.Int32, []float64{2, 5}),
		tensor.MustNew(dtype.Float32, []float64{10, 20, 30, 40}, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 13, 4, 5, 36}, res[0].Data())

	_, err = b.Op(OpScatterAdd, Attrs{AttrAxis: int64(0)}, x, idx, upd)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRandomSplitKernel(t *testing.T) {
	b := NewBuilder("split")
	key := b.Parameter(Type{DType: dtype.Uint32, Shape: []int64{2}})

	y, err := b.Op(OpRandomSplit, Attrs{AttrCount: int64(2)}, key)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, y.Shape())

	g, err := b.Build(y)
	require.NoError(t, err)

	res, err := run(t, g, "tpu", tensor.MustNew(dtype.Uint32, []float64{0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{4146024105, 967050713, 2718843009, 1272950319}, res[0].Data())

	_, err = b.Op(OpRandomSplit, nil, b.Parameter(f32(2)))
	require.ErrorIs(t, err, ErrInvalidArgument)
}
